package core

import (
	"errors"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestDecodeText(t *testing.T) {
	latin1, err := charmap.Windows1252.NewEncoder().String("name\nJosé\n")
	if err != nil {
		t.Fatal(err)
	}
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("name\nJosé\n")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		data    []byte
		opts    DecodeOptions
		want    string
		wantErr bool
	}{
		{name: "plain utf-8", data: []byte("a,b\n1,2\n"), want: "a,b\n1,2\n"},
		{name: "utf-8 BOM stripped", data: []byte("\xEF\xBB\xBFa,b\n"), want: "a,b\n"},
		{name: "invalid bytes replaced", data: []byte("a\n\xff\xfeb\n"), want: "a\n\uFFFDb\n"},
		{name: "invalid bytes rejected when strict", data: []byte("a\n\xffb\n"), opts: DecodeOptions{StrictUTF8: true}, wantErr: true},
		{name: "declared windows-1252", data: []byte(latin1), opts: DecodeOptions{Charset: "windows-1252"}, want: "name\nJosé\n"},
		{name: "declared utf-8", data: []byte("x"), opts: DecodeOptions{Charset: "UTF-8"}, want: "x"},
		{name: "utf-16 detected by BOM", data: []byte(utf16), want: "name\nJosé\n"},
		{name: "unknown charset", data: []byte("x"), opts: DecodeOptions{Charset: "klingon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeText(tt.data, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeText error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DecodeText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeText_StrictReportsLine(t *testing.T) {
	_, err := DecodeText([]byte("h\nok\nbad\xc3(\n"), DecodeOptions{StrictUTF8: true})
	var mie *MalformedInputError
	if !errors.As(err, &mie) {
		t.Fatalf("error = %v, want *MalformedInputError", err)
	}
	if mie.Line != 3 {
		t.Errorf("Line = %d, want 3", mie.Line)
	}
}

package kiss

import (
	"bytes"
	"testing"

	"github.com/matryer/is"
)

func TestFrame(t *testing.T) {
	inputs := map[string][]byte{
		"empty":         {},
		"text":          []byte("hello"),
		"embedded fend": {0x01, FEND, 0x02},
		"embedded fesc": {FESC, FESC},
		"single byte":   {0x7E},
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)

			got := Frame(in)
			is.Equal(len(got), len(in)+3)
			is.Equal(got[0], byte(FEND))
			is.Equal(got[1], byte(CmdData))
			is.Equal(got[len(got)-1], byte(FEND))
			is.True(bytes.Equal(got[2:len(got)-1], in)) // payload left untouched
		})
	}
}

func TestFrame_DoesNotAliasInput(t *testing.T) {
	is := is.New(t)

	in := []byte{0x01, 0x02}
	out := Frame(in)
	out[2] = 0xFF
	is.Equal(in[0], byte(0x01))
}

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{name: "plain", in: []byte("abc"), want: []byte("abc")},
		{name: "fend", in: []byte{0x01, FEND, 0x02}, want: []byte{0x01, FESC, TFEND, 0x02}},
		{name: "fesc", in: []byte{FESC}, want: []byte{FESC, TFESC}},
		{name: "both", in: []byte{FEND, FESC}, want: []byte{FESC, TFEND, FESC, TFESC}},
		{name: "transposed bytes pass through", in: []byte{TFEND, TFESC}, want: []byte{TFEND, TFESC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Escape(tt.in); !bytes.Equal(got, tt.want) {
				t.Errorf("Escape(% X) = % X, want % X", tt.in, got, tt.want)
			}
		})
	}
}

func TestEscapedFrame_HasNoInnerFEND(t *testing.T) {
	is := is.New(t)

	out := Frame(Escape([]byte{FEND, 0x10, FEND}))
	is.Equal(bytes.Count(out, []byte{FEND}), 2)
}

package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ja7ad/spm/pkg/session"
)

func k(code session.KeyCode) session.Key { return session.Key{Code: code} }

func TestDecode(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []session.Key
	}{
		{"runes", "sw/", []session.Key{session.Rune('s'), session.Rune('w'), session.Rune('/')}},
		{"utf8", "é", []session.Key{session.Rune('é')}},
		{"enter_cr", "\r", []session.Key{k(session.KeyEnter)}},
		{"enter_lf", "\n", []session.Key{k(session.KeyEnter)}},
		{"backspace", "\x7f\x08", []session.Key{k(session.KeyBackspace), k(session.KeyBackspace)}},
		{"ctrl_c", "\x03", []session.Key{k(session.KeyCtrlC)}},
		{"lone_esc", "\x1b", []session.Key{k(session.KeyEsc)}},
		{"double_esc", "\x1b\x1b", []session.Key{k(session.KeyEsc), k(session.KeyEsc)}},
		{"esc_then_rune", "\x1bq", []session.Key{k(session.KeyEsc), session.Rune('q')}},
		{"arrows", "\x1b[A\x1b[B\x1b[C\x1b[D", []session.Key{
			k(session.KeyUp), k(session.KeyDown), k(session.KeyRight), k(session.KeyLeft),
		}},
		{"ss3_arrows", "\x1bOA\x1bOD", []session.Key{k(session.KeyUp), k(session.KeyLeft)}},
		{"paging", "\x1b[5~\x1b[6~", []session.Key{k(session.KeyPageUp), k(session.KeyPageDown)}},
		{"home_end", "\x1b[H\x1b[F\x1b[1~\x1b[4~\x1bOH\x1bOF", []session.Key{
			k(session.KeyHome), k(session.KeyEnd), k(session.KeyHome), k(session.KeyEnd),
			k(session.KeyHome), k(session.KeyEnd),
		}},
		{"unknown_csi_dropped", "\x1b[1;5Cx", []session.Key{session.Rune('x')}},
		{"truncated_csi", "\x1b[", nil},
		{"other_control_ignored", "\x01\x02a", []session.Key{session.Rune('a')}},
		{"mixed", "+\x1b[C -", []session.Key{session.Rune('+'), k(session.KeyRight), session.Rune(' '), session.Rune('-')}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decode([]byte(tc.in)))
		})
	}
}

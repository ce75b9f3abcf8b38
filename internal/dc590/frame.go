package dc590

import (
	"fmt"
	"strings"
)

// frame accumulates the tokens of one transaction.
type frame struct {
	b strings.Builder
}

func (f *frame) start() *frame {
	f.b.WriteByte('s')
	return f
}

func (f *frame) send(bytes ...byte) *frame {
	for _, v := range bytes {
		fmt.Fprintf(&f.b, "S%02X", v)
	}
	return f
}

// read requests n bytes: ACK all but the last.
func (f *frame) read(n int) *frame {
	for i := 1; i < n; i++ {
		f.b.WriteByte('Q')
	}
	if n > 0 {
		f.b.WriteByte('R')
	}
	return f
}

func (f *frame) stop() string {
	f.b.WriteByte('p')
	return f.b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'A' <= c && c <= 'F' || 'a' <= c && c <= 'f'
}

func allHex(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isHex(s[i]) {
			return false
		}
	}
	return true
}

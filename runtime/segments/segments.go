// Package segments encodes display text into seven-segment cell patterns.
//
// Bit layout follows the common HT16K33/74HC595 wiring: bit 0 = segment a,
// bit 6 = segment g, bit 7 = decimal point.
package segments

// DP is the decimal point bit.
const DP byte = 0x80

var glyphs = map[rune]byte{
	'0': 0x3F, '1': 0x06, '2': 0x5B, '3': 0x4F, '4': 0x66,
	'5': 0x6D, '6': 0x7D, '7': 0x07, '8': 0x7F, '9': 0x6F,
	'A': 0x77, 'B': 0x7C, 'C': 0x39, 'D': 0x5E, 'E': 0x79, 'F': 0x71,
	'H': 0x76, 'L': 0x38, 'P': 0x73, 'U': 0x3E,
	'b': 0x7C, 'c': 0x58, 'd': 0x5E, 'n': 0x54, 'o': 0x5C, 'r': 0x50,
	'-': 0x40, '_': 0x08, ' ': 0x00,
}

// Cell is one digit position.
type Cell struct {
	Rune rune
	Dot  bool
}

// Glyph returns the segment pattern for r. Unknown runes render blank.
func Glyph(r rune) byte {
	return glyphs[r]
}

// Split lays text out into exactly digits cells, right-aligned.
//
// Every rune other than '.' occupies one cell. A '.' lights the decimal point
// of the preceding cell, or forms a blank cell with its decimal point when there
// is no preceding cell or it already shows one. Shorter text is left-padded with
// blank cells; longer text keeps the rightmost cells.
func Split(text string, digits int) []Cell {
	if digits <= 0 {
		return nil
	}
	cells := make([]Cell, 0, len(text))
	for _, r := range text {
		if r == '.' {
			last := len(cells) - 1
			if last >= 0 && !cells[last].Dot {
				cells[last].Dot = true
				continue
			}
			cells = append(cells, Cell{Rune: ' ', Dot: true})
			continue
		}
		cells = append(cells, Cell{Rune: r})
	}
	out := make([]Cell, digits)
	for i := range out {
		out[i].Rune = ' '
	}
	if len(cells) >= digits {
		copy(out, cells[len(cells)-digits:])
		return out
	}
	copy(out[digits-len(cells):], cells)
	return out
}

// Encode converts text into exactly digits segment patterns.
func Encode(text string, digits int) []byte {
	cells := Split(text, digits)
	if cells == nil {
		return nil
	}
	out := make([]byte, len(cells))
	for i, cell := range cells {
		out[i] = Glyph(cell.Rune)
		if cell.Dot {
			out[i] |= DP
		}
	}
	return out
}

// Width returns the number of cells text occupies.
func Width(text string) int {
	width := 0
	dotted := true
	for _, r := range text {
		if r == '.' {
			if dotted {
				width++
			}
			dotted = true
			continue
		}
		width++
		dotted = false
	}
	return width
}

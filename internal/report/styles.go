package report

// style is the formatting of one kind of line, shared by the PDF and DOCX
// renderers.
type style struct {
	Bold  bool
	Size  float64
	Color string
}

const accentColor = "4F46E5"

var styles = map[string]style{
	"title":    {Bold: true, Size: 24, Color: accentColor},
	"subtitle": {Bold: true, Size: 18, Color: accentColor},
	"category": {Bold: true, Size: 16},
	"question": {Bold: true, Size: 12},
	"answer":   {Size: 12},
}

// rgb splits a hex colour; an empty colour is black.
func rgb(hex string) (int, int, int) {
	if len(hex) != 6 {
		return 0, 0, 0
	}
	var v [3]int
	for i := 0; i < 3; i++ {
		v[i] = hexByte(hex[i*2])<<4 | hexByte(hex[i*2+1])
	}
	return v[0], v[1], v[2]
}

func hexByte(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 0
}

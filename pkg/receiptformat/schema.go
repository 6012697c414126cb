// Package receiptformat defines the .receipt template document: a list of layout
// commands plus the variables and arrays that fill them.
package receiptformat

// Version is the only supported document version.
const Version = "1.0"

// Paper widths.
const (
	Paper58  = "58mm"
	Paper80  = "80mm"
	Paper112 = "112mm"
)

// Document is the root of a .receipt file.
type Document struct {
	Version    string     `json:"version"`
	Name       string     `json:"name,omitempty"`
	PaperWidth string     `json:"paper_width,omitempty"`
	Font       string     `json:"font,omitempty"` // TTF path; built-in face when empty
	Variables  []Variable `json:"variables,omitempty"`
	Arrays     []Array    `json:"arrays,omitempty"`
	Commands   []Command  `json:"commands"`
}

// Variable is a named scalar bound by Command.Var.
type Variable struct {
	Name    string `json:"name"`
	Default string `json:"default,omitempty"`
	Prefix  string `json:"prefix,omitempty"`
	Suffix  string `json:"suffix,omitempty"`
}

// Array is a named list of records. A command bound to it repeats once per record.
type Array struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// Command types.
const (
	TypeText    = "text"
	TypeFeed    = "feed"
	TypeCut     = "cut"
	TypeDivider = "divider"
	TypeItem    = "item"
	TypeFolder  = "folder"
	TypeImage   = "image"
	TypeBarcode = "barcode"
	TypeQRCode  = "qrcode"
)

// Command is one layout instruction. Which fields apply depends on Type.
type Command struct {
	Type string `json:"type"`

	// Bind repeats the command for each record of the named array.
	Bind string `json:"bind,omitempty"`
	// When skips the command if the named variable or field resolves to "".
	When string `json:"when,omitempty"`

	// text, barcode, qrcode
	Value string `json:"value,omitempty"`
	Var   string `json:"var,omitempty"`
	Field string `json:"field,omitempty"`

	// text
	Bold  bool    `json:"bold,omitempty"`
	Size  float64 `json:"size,omitempty"`
	Align string  `json:"align,omitempty"`

	// feed
	Lines int `json:"lines,omitempty"`

	// item
	Left  []Command `json:"left,omitempty"`
	Right []Command `json:"right,omitempty"`
	Ratio string    `json:"ratio,omitempty"`

	// divider
	Style string `json:"style,omitempty"`

	// barcode, qrcode, image
	Format string `json:"format,omitempty"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
	Level  string `json:"level,omitempty"`
	Path   string `json:"path,omitempty"`
	Base64 string `json:"base64,omitempty"`

	// folder
	Title    string    `json:"title,omitempty"`
	Commands []Command `json:"commands,omitempty"`
	Border   int       `json:"border,omitempty"`
	Padding  int       `json:"padding,omitempty"`
}

// Data holds the values a document is rendered with.
type Data struct {
	Vars   map[string]string              `json:"vars,omitempty"`
	Arrays map[string][]map[string]string `json:"arrays,omitempty"`
}

// PaperPixels returns the printable width in dots at 203 dpi.
func PaperPixels(width string) int {
	switch width {
	case Paper58:
		return 384
	case Paper112:
		return 832
	default:
		return 576
	}
}

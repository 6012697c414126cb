package receiptformat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-faster/errors"
)

func validDocument() *Document {
	return &Document{
		Version:    Version,
		PaperWidth: Paper80,
		Variables: []Variable{
			{Name: "receipt_number"},
			{Name: "customer", Default: "unspecified"},
		},
		Arrays: []Array{
			{Name: "items", Fields: []string{"name", "net", "discount"}},
		},
		Commands: []Command{
			{Type: TypeText, Var: "receipt_number", Align: "center", Bold: true},
			{Type: TypeFolder, Bind: "items", Commands: []Command{
				{Type: TypeItem,
					Left:  []Command{{Type: TypeText, Field: "name"}},
					Right: []Command{{Type: TypeText, Field: "net", Align: "right"}},
				},
				{Type: TypeText, Field: "discount", When: "discount"},
			}},
			{Type: TypeBarcode, Var: "receipt_number", Format: "CODE128"},
			{Type: TypeCut},
		},
	}
}

func TestValidate_ValidDocument(t *testing.T) {
	if err := Validate(validDocument()); err != nil {
		t.Errorf("Expected valid document, got error: %v", err)
	}
}

func TestValidate_Version(t *testing.T) {
	doc := validDocument()
	doc.Version = ""
	if err := Validate(doc); err == nil {
		t.Error("Expected error for missing version")
	}

	doc.Version = "2.0"
	if err := Validate(doc); err == nil {
		t.Error("Expected error for unsupported version")
	}
}

func TestValidate_PaperWidths(t *testing.T) {
	for _, width := range []string{"", Paper58, Paper80, Paper112} {
		doc := validDocument()
		doc.PaperWidth = width
		if err := Validate(doc); err != nil {
			t.Errorf("Expected valid for width %q, got error: %v", width, err)
		}
	}

	doc := validDocument()
	doc.PaperWidth = "100mm"
	if err := Validate(doc); err == nil {
		t.Error("Expected error for invalid paper width")
	}
}

func TestValidate_NoCommands(t *testing.T) {
	doc := validDocument()
	doc.Commands = nil
	if err := Validate(doc); err == nil {
		t.Error("Expected error for no commands")
	}
}

func TestValidate_References(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Document)
		wantErr string
	}{
		{
			name:    "duplicate variable",
			mutate:  func(d *Document) { d.Variables = append(d.Variables, Variable{Name: "customer"}) },
			wantErr: "duplicate name",
		},
		{
			name:    "unknown variable",
			mutate:  func(d *Document) { d.Commands[0].Var = "missing" },
			wantErr: "unknown variable",
		},
		{
			name:    "field outside bind",
			mutate:  func(d *Document) { d.Commands = append(d.Commands, Command{Type: TypeText, Field: "name"}) },
			wantErr: "outside a bound command",
		},
		{
			name:    "unknown array",
			mutate:  func(d *Document) { d.Commands[1].Bind = "parcels" },
			wantErr: "unknown array",
		},
		{
			name: "unknown field",
			mutate: func(d *Document) {
				d.Commands[1].Commands[0].Left[0].Field = "weight"
			},
			wantErr: "has no field",
		},
		{
			name:    "unknown when",
			mutate:  func(d *Document) { d.Commands[0].When = "nope" },
			wantErr: "unknown name",
		},
		{
			name: "nested bind",
			mutate: func(d *Document) {
				d.Commands[1].Commands[1].Bind = "items"
			},
			wantErr: "nested bind",
		},
		{
			name:    "text with two sources",
			mutate:  func(d *Document) { d.Commands[0].Value = "x" },
			wantErr: "cannot combine",
		},
		{
			name:    "text without source",
			mutate:  func(d *Document) { d.Commands[0].Var = "" },
			wantErr: "requires value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.mutate(doc)
			err := Validate(doc)
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_CommandOptions(t *testing.T) {
	bad := []Command{
		{Type: "marquee"},
		{Type: ""},
		{Type: TypeText, Value: "x", Align: "justify"},
		{Type: TypeDivider, Style: "wavy"},
		{Type: TypeBarcode, Value: "123", Format: "PDF417"},
		{Type: TypeQRCode, Value: "x", Level: "Z"},
		{Type: TypeImage},
		{Type: TypeImage, Path: "a.png", Base64: "AAAA"},
		{Type: TypeFolder},
		{Type: TypeItem, Left: []Command{{Type: TypeText, Value: "a"}}},
		{Type: TypeItem, Left: []Command{{Type: TypeText, Value: "a"}}, Right: []Command{{Type: TypeText, Value: "b"}}, Ratio: "2-1"},
	}

	for _, cmd := range bad {
		doc := &Document{Version: Version, Commands: []Command{cmd}}
		if err := Validate(doc); err == nil {
			t.Errorf("Expected error for command %+v", cmd)
		}
	}
}

func TestParseRatio(t *testing.T) {
	l, r, err := ParseRatio("3:1")
	if err != nil || l != 3 || r != 1 {
		t.Errorf("Expected 3:1, got %d:%d (%v)", l, r, err)
	}
	for _, s := range []string{"", "1", "0:1", "a:b", "1:2:3"} {
		if _, _, err := ParseRatio(s); err == nil {
			t.Errorf("Expected error for ratio %q", s)
		}
	}
}

func TestParse_RoundTrip(t *testing.T) {
	data, err := validDocument().ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(doc.Commands) != 4 || doc.Commands[1].Bind != "items" {
		t.Errorf("Unexpected commands after round trip: %+v", doc.Commands)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte(`{`)); err == nil {
		t.Error("Expected error for malformed JSON")
	}
	if _, err := Parse([]byte(`{"version":"1.0","commands":[]}`)); err == nil {
		t.Error("Expected validation error")
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.receipt")
	if err := validDocument().SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if doc.PaperWidth != Paper80 {
		t.Errorf("Expected 80mm, got %s", doc.PaperWidth)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.receipt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestPaperPixels(t *testing.T) {
	if PaperPixels(Paper58) != 384 || PaperPixels(Paper80) != 576 || PaperPixels(Paper112) != 832 || PaperPixels("") != 576 {
		t.Error("Unexpected paper pixel widths")
	}
}

package receiptformat

import (
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

var (
	paperWidths    = []string{Paper58, Paper80, Paper112}
	aligns         = []string{"left", "center", "right"}
	dividerStyles  = []string{"solid", "dashed", "double"}
	barcodeFormats = []string{"CODE128", "CODE39", "EAN13"}
	qrLevels       = []string{"L", "M", "Q", "H"}
)

// scope is what a command may reference.
type scope struct {
	vars   map[string]bool
	arrays map[string]map[string]bool
	bound  string
}

// Validate checks the document structure and every reference in it.
func Validate(d *Document) error {
	if d.Version == "" {
		return errors.New("version is required")
	}
	if d.Version != Version {
		return errors.Errorf("unsupported version: %s (expected %s)", d.Version, Version)
	}

	if d.PaperWidth != "" && !slices.Contains(paperWidths, d.PaperWidth) {
		return errors.Errorf("invalid paper_width: %s (must be 58mm, 80mm, or 112mm)", d.PaperWidth)
	}

	sc := scope{
		vars:   make(map[string]bool),
		arrays: make(map[string]map[string]bool),
	}

	for i, v := range d.Variables {
		if v.Name == "" {
			return errors.Errorf("variable[%d]: name is required", i)
		}
		if sc.vars[v.Name] {
			return errors.Errorf("variable[%d]: duplicate name %q", i, v.Name)
		}
		sc.vars[v.Name] = true
	}

	for i, arr := range d.Arrays {
		if arr.Name == "" {
			return errors.Errorf("array[%d]: name is required", i)
		}
		if _, dup := sc.arrays[arr.Name]; dup {
			return errors.Errorf("array[%d]: duplicate name %q", i, arr.Name)
		}
		fields := make(map[string]bool, len(arr.Fields))
		for j, f := range arr.Fields {
			if f == "" {
				return errors.Errorf("array %q field[%d]: name is required", arr.Name, j)
			}
			if fields[f] {
				return errors.Errorf("array %q: duplicate field %q", arr.Name, f)
			}
			fields[f] = true
		}
		sc.arrays[arr.Name] = fields
	}

	if len(d.Commands) == 0 {
		return errors.New("at least one command is required")
	}

	for i := range d.Commands {
		if err := validateCommand(&d.Commands[i], sc); err != nil {
			return errors.Wrapf(err, "command[%d]", i)
		}
	}

	return nil
}

func validateCommand(cmd *Command, sc scope) error {
	if cmd.Bind != "" {
		if sc.bound != "" {
			return errors.Errorf("nested bind %q inside %q", cmd.Bind, sc.bound)
		}
		if _, ok := sc.arrays[cmd.Bind]; !ok {
			return errors.Errorf("unknown array %q in bind", cmd.Bind)
		}
		sc.bound = cmd.Bind
	}

	if cmd.When != "" && !sc.known(cmd.When) {
		return errors.Errorf("unknown name %q in when", cmd.When)
	}

	switch cmd.Type {
	case TypeText:
		if err := validateSource(cmd, sc, "text"); err != nil {
			return err
		}
		if cmd.Align != "" && !slices.Contains(aligns, cmd.Align) {
			return errors.Errorf("invalid align %q (must be left, center, or right)", cmd.Align)
		}
		return nil
	case TypeFeed, TypeCut:
		return nil
	case TypeDivider:
		if cmd.Style != "" && !slices.Contains(dividerStyles, cmd.Style) {
			return errors.Errorf("invalid divider style %q", cmd.Style)
		}
		return nil
	case TypeItem:
		return validateItem(cmd, sc)
	case TypeFolder:
		if len(cmd.Commands) == 0 {
			return errors.New("folder requires commands")
		}
		return validateChildren("commands", cmd.Commands, sc)
	case TypeImage:
		if cmd.Path == "" && cmd.Base64 == "" {
			return errors.New("image requires path or base64")
		}
		if cmd.Path != "" && cmd.Base64 != "" {
			return errors.New("image cannot have both path and base64")
		}
		return nil
	case TypeBarcode:
		if err := validateSource(cmd, sc, "barcode"); err != nil {
			return err
		}
		if cmd.Format != "" && !slices.Contains(barcodeFormats, cmd.Format) {
			return errors.Errorf("invalid barcode format %q", cmd.Format)
		}
		return nil
	case TypeQRCode:
		if err := validateSource(cmd, sc, "qrcode"); err != nil {
			return err
		}
		if cmd.Level != "" && !slices.Contains(qrLevels, cmd.Level) {
			return errors.Errorf("invalid qrcode level %q (must be L, M, Q, or H)", cmd.Level)
		}
		return nil
	case "":
		return errors.New("command type is required")
	default:
		return errors.Errorf("unknown command type: %s", cmd.Type)
	}
}

// validateSource requires exactly one of value, var and field.
func validateSource(cmd *Command, sc scope, kind string) error {
	count := 0
	if cmd.Value != "" {
		count++
	}
	if cmd.Var != "" {
		count++
		if !sc.vars[cmd.Var] {
			return errors.Errorf("unknown variable %q", cmd.Var)
		}
	}
	if cmd.Field != "" {
		count++
		if sc.bound == "" {
			return errors.Errorf("field %q used outside a bound command", cmd.Field)
		}
		if !sc.arrays[sc.bound][cmd.Field] {
			return errors.Errorf("array %q has no field %q", sc.bound, cmd.Field)
		}
	}

	switch {
	case count == 0:
		return errors.Errorf("%s requires value, var, or field", kind)
	case count > 1:
		return errors.Errorf("%s cannot combine value, var, and field", kind)
	}
	return nil
}

func validateItem(cmd *Command, sc scope) error {
	if len(cmd.Left) == 0 {
		return errors.New("item requires left")
	}
	if len(cmd.Right) == 0 {
		return errors.New("item requires right")
	}
	if err := validateChildren("left", cmd.Left, sc); err != nil {
		return err
	}
	if err := validateChildren("right", cmd.Right, sc); err != nil {
		return err
	}

	if cmd.Ratio != "" {
		if _, _, err := ParseRatio(cmd.Ratio); err != nil {
			return err
		}
	}
	return nil
}

func validateChildren(name string, cmds []Command, sc scope) error {
	for i := range cmds {
		if err := validateCommand(&cmds[i], sc); err != nil {
			return errors.Wrapf(err, "%s[%d]", name, i)
		}
	}
	return nil
}

func (sc scope) known(name string) bool {
	if sc.vars[name] {
		return true
	}
	return sc.bound != "" && sc.arrays[sc.bound][name]
}

// ParseRatio parses an "X:Y" column ratio of positive integers.
func ParseRatio(s string) (left, right int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("invalid ratio %q (must be X:Y)", s)
	}
	left, errL := strconv.Atoi(strings.TrimSpace(parts[0]))
	right, errR := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errL != nil || errR != nil || left <= 0 || right <= 0 {
		return 0, 0, errors.Errorf("invalid ratio %q (must be positive integers)", s)
	}
	return left, right, nil
}

// Package parser reads PAN module datasheet files (plain-text Key=Value
// records) into validated ModuleSpec values.
package parser

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"pv_design/internal/domain"
)

// panLexer tokenizes the PAN line format: one Key=Value pair per line,
// values either quoted strings, reals, or bare words.
var panLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `;[^\n]*`},
	{Name: "EOL", Pattern: `\r?\n`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Number", Pattern: `[-+]?[0-9]+(\.[0-9]+)?([eE][-+]?[0-9]+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.:/-]*`},
	{Name: "Eq", Pattern: `=`},
})

type panFile struct {
	Entries []*panEntry `parser:"(@@ | EOL)*"`
}

type panEntry struct {
	Key   string    `parser:"@Ident \"=\""`
	Value *panValue `parser:"@@? EOL"`
}

type panValue struct {
	Str   *string  `parser:"  @String"`
	Num   *float64 `parser:"| @Number"`
	Words []string `parser:"| @(Ident | Number)+"`
}

func (v *panValue) text() string {
	switch {
	case v == nil:
		return ""
	case v.Str != nil:
		return *v.Str
	case v.Num != nil:
		return fmt.Sprintf("%g", *v.Num)
	default:
		return strings.Join(v.Words, " ")
	}
}

// Parser parses PAN datasheet text.
type Parser struct {
	parser *participle.Parser[panFile]
}

// New builds the PAN grammar once; reuse the parser across files.
func New() (*Parser, error) {
	p, err := participle.Build[panFile](
		participle.Lexer(panLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.Unquote("String"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build PAN parser: %w", err)
	}
	return &Parser{parser: p}, nil
}

// Fields parses PAN text into its raw key/value entries. Later entries
// win on duplicate keys, matching how datasheet exports append overrides.
func (p *Parser) Fields(input string) (map[string]*panValue, error) {
	if !strings.HasSuffix(input, "\n") {
		input += "\n"
	}
	file, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, &domain.ValidationError{Field: "pan", Reason: err.Error()}
	}
	fields := make(map[string]*panValue, len(file.Entries))
	for _, entry := range file.Entries {
		fields[entry.Key] = entry.Value
	}
	return fields, nil
}

// ModuleSpec parses PAN text and maps it onto a validated ModuleSpec.
// Width arrives in metres and is stored in millimetres. A missing or
// non-numeric required field is a validation error, never a default.
func (p *Parser) ModuleSpec(input string) (*domain.ModuleSpec, error) {
	fields, err := p.Fields(input)
	if err != nil {
		return nil, err
	}

	model := fields["Model"].text()
	if model == "" {
		return nil, &domain.ValidationError{Field: "Model", Reason: "missing from PAN file"}
	}

	numeric := func(key string) (float64, error) {
		val, ok := fields[key]
		if !ok {
			return 0, &domain.ValidationError{Field: key, Reason: "missing from PAN file"}
		}
		if val == nil || val.Num == nil {
			return 0, &domain.ValidationError{Field: key, Reason: fmt.Sprintf("non-numeric value %q", val.text())}
		}
		return *val.Num, nil
	}

	spec := domain.ModuleSpec{Model: model}
	if spec.Manufacturer = fields["Manufacturer"].text(); spec.Manufacturer == "" {
		spec.Manufacturer = fields["PVObject_Commercial"].text()
	}

	var widthM float64
	for key, dst := range map[string]*float64{
		"Isc":   &spec.Isc,
		"Imp":   &spec.Imp,
		"PNom":  &spec.Wattage,
		"Voc":   &spec.Voc,
		"Vmp":   &spec.Vmp,
		"Width": &widthM,
	} {
		value, err := numeric(key)
		if err != nil {
			return nil, err
		}
		*dst = value
	}
	spec.WidthMM = widthM * 1000

	// Optional geometry and ratings; absent fields stay zero.
	if val, ok := fields["Height"]; ok && val != nil && val.Num != nil {
		spec.LengthMM = *val.Num * 1000
	}
	if val, ok := fields["Depth"]; ok && val != nil && val.Num != nil {
		spec.DepthMM = *val.Num * 1000
	}
	if val, ok := fields["Weight"]; ok && val != nil && val.Num != nil {
		spec.WeightKG = *val.Num
	}
	if val, ok := fields["VMaxIEC"]; ok && val != nil && val.Num != nil {
		spec.MaxSystemVoltage = *val.Num
	}

	return domain.NewModuleSpec(spec)
}

package asm

import (
	"bytes"
	"reflect"
	"testing"

	"gochip8/pkg/opcode"
)

// encodeWords converts a slice of uint16 to big-endian bytes.
func encodeWords(words ...uint16) []byte {
	out := make([]byte, len(words)*2)
	for i, w := range words {
		out[i*2] = byte(w >> 8)
		out[i*2+1] = byte(w & 0xFF)
	}
	return out
}

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"abc", true},
		{"_abc", true},
		{"abc1", true},
		{"1abc", false},
		{"", false},
		{"ab-c", false},
	}
	for _, tc := range tests {
		if got := isIdentifier(tc.input); got != tc.want {
			t.Errorf("isIdentifier(%q) = %v; want %v", tc.input, got, tc.want)
		}
	}

	if got := normalizeLabel("label"); got != "LABEL" {
		t.Errorf("normalizeLabel(\"label\") = %q; want \"LABEL\"", got)
	}

	numbers := []struct {
		token string
		want  uint64
	}{
		{"10", 10},
		{"0x1F", 0x1F},
		{"$1F", 0x1F},
		{"#200", 0x200},
		{"0b101", 5},
	}
	for _, tc := range numbers {
		got, err := parseNumber(tc.token)
		if err != nil || got != tc.want {
			t.Errorf("parseNumber(%q) = %d, %v; want %d", tc.token, got, err, tc.want)
		}
	}

	for _, tok := range []string{"V0", "va", "VF"} {
		if _, err := parseRegister(tok, 1); err != nil {
			t.Errorf("parseRegister(%q): unexpected error %v", tok, err)
		}
	}
	for _, tok := range []string{"VG", "V10", "R0", "I"} {
		if _, err := parseRegister(tok, 1); err == nil {
			t.Errorf("parseRegister(%q): expected error", tok)
		}
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    parsedLine
		wantErr bool
	}{
		{
			"ld V0, $05",
			parsedLine{lineNo: 1, mnemonic: "LD", operands: []string{"V0", "$05"}},
			false,
		},
		{
			"  ld [ I ], V3  ; comment",
			parsedLine{lineNo: 1, mnemonic: "LD", operands: []string{"[I]", "V3"}},
			false,
		},
		{
			"START: cls",
			parsedLine{lineNo: 1, labels: []string{"START"}, mnemonic: "CLS", operands: nil},
			false,
		},
		{
			"LABEL1: LABEL2: ret",
			parsedLine{lineNo: 1, labels: []string{"LABEL1", "LABEL2"}, mnemonic: "RET", operands: nil},
			false,
		},
		{
			".org\t0x300",
			parsedLine{lineNo: 1, mnemonic: ".ORG", operands: []string{"0x300"}},
			false,
		},
		{
			"// only a comment",
			parsedLine{lineNo: 1},
			false,
		},
		// Invalid cases
		{
			"1LABEL: cls",
			parsedLine{lineNo: 1},
			true,
		},
		{
			"ld V0,, V1",
			parsedLine{lineNo: 1},
			true,
		},
	}

	for _, tc := range tests {
		got, err := parseLine(tc.line, 1)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseLine(%q) error = %v, wantErr %v", tc.line, err, tc.wantErr)
			continue
		}
		if !tc.wantErr {
			if got.mnemonic != tc.want.mnemonic {
				t.Errorf("parseLine(%q) mnemonic = %q, want %q", tc.line, got.mnemonic, tc.want.mnemonic)
			}
			if !reflect.DeepEqual(got.labels, tc.want.labels) && !(len(got.labels) == 0 && len(tc.want.labels) == 0) {
				t.Errorf("parseLine(%q) labels = %v, want %v", tc.line, got.labels, tc.want.labels)
			}
			if !reflect.DeepEqual(got.operands, tc.want.operands) && !(len(got.operands) == 0 && len(tc.want.operands) == 0) {
				t.Errorf("parseLine(%q) operands = %v, want %v", tc.line, got.operands, tc.want.operands)
			}
		}
	}
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		want    []byte
		wantErr bool
	}{
		{
			"Counting loop",
			`
			ld V0, 10
			ld V1, 0
		loop:
			add V1, 1
			se V1, V0
			jp loop
			exit
			`,
			encodeWords(0x600A, 0x6100, 0x7101, 0x5100, 0x1204, 0x0000),
			false,
		},
		{
			"Every form",
			`
			cls
			ret
			sys $123
			call $300
			sne V1, $FF
			sne V1, V2
			ld V1, V2
			or V1, V2
			and V1, V2
			xor V1, V2
			add V1, V2
			sub V1, V2
			shr V1, V2
			subn V1, V2
			shl V1, V2
			ld I, $2F0
			jp V0, $300
			rnd V3, $0F
			drw V0, V1, 5
			skp V4
			sknp V4
			ld V5, DT
			ld V5, K
			ld DT, V5
			ld ST, V5
			add I, V5
			ld F, V5
			ld B, V5
			ld [I], V5
			ld V5, [I]
			`,
			encodeWords(
				0x00E0, 0x00EE, 0x0123, 0x2300, 0x41FF, 0x9120,
				0x8120, 0x8121, 0x8122, 0x8123, 0x8124, 0x8125, 0x8126, 0x8127, 0x812E,
				0xA2F0, 0xB300, 0xC30F, 0xD015, 0xE49E, 0xE4A1,
				0xF507, 0xF50A, 0xF515, 0xF518, 0xF51E, 0xF529, 0xF533, 0xF555, 0xF565,
			),
			false,
		},
		{
			".ORG",
			`
			.ORG 0x204
			cls
			`,
			append([]byte{0, 0, 0, 0}, encodeWords(0x00E0)...),
			false,
		},
		{
			"Data",
			`
			jp start
		sprite:
			.byte $F0, 0x90, 144
			.word $1234
		start:
			ld I, sprite
			`,
			[]byte{0x12, 0x07, 0xF0, 0x90, 0x90, 0x12, 0x34, 0xA2, 0x02},
			false,
		},
		{
			"Case and comments",
			`
			; Comment
			LD va, #1f // Comment
			`,
			encodeWords(0x6A1F),
			false,
		},
		// Errors
		{"Unknown instruction", `foo V0`, nil, true},
		{"Undefined label", `jp nowhere`, nil, true},
		{"Duplicate label", "a: cls\na: cls", nil, true},
		{"Byte out of range", `ld V0, 256`, nil, true},
		{"Nibble out of range", `drw V0, V1, 16`, nil, true},
		{"Address out of range", `jp $1000`, nil, true},
		{"Bad register", `ld VG, 1`, nil, true},
		{"Wrong operand count", `cls V0`, nil, true},
		{"Literal mismatch", `ld X, V0`, nil, true},
		{"ORG below program", `.org 0x100`, nil, true},
		{"ORG backwards", ".org 0x300\n.org 0x280", nil, true},
		{"Register as constant", `jp V1`, nil, true},
	}

	for _, tc := range tests {
		got, _, err := Assemble(tc.code)
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: Assemble() error = %v, wantErr %v", tc.name, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && !bytes.Equal(got, tc.want) {
			t.Errorf("%s: Assemble() = % X; want % X", tc.name, got, tc.want)
		}
	}
}

func TestAssembleSourceMap(t *testing.T) {
	code := `
; Line 2: Comment
ld V0, 10       ; Line 3
                ; Line 4: Empty
LABEL:          ; Line 5: Label
add V0, V1      ; Line 6
.org 0x210      ; Line 7
cls             ; Line 8
.byte 1, 2, 3   ; Line 9
`
	_, sourceMap, err := Assemble(code)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	tests := []struct {
		addr uint16
		line int
	}{
		{0x200, 3},
		{0x202, 6},
		{0x210, 8},
		{0x212, 9},
	}
	for _, tc := range tests {
		if got := sourceMap[tc.addr]; got != tc.line {
			t.Errorf("sourceMap[0x%03X] = %d; want %d", tc.addr, got, tc.line)
		}
	}
	if len(sourceMap) != len(tests) {
		t.Errorf("expected %d source map entries, got %d", len(tests), len(sourceMap))
	}
}

func TestLabels(t *testing.T) {
	a := NewAssembler()
	if _, _, err := a.Assemble("cls\nhere: ret"); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if got := a.Labels()["HERE"]; got != 0x202 {
		t.Errorf("label HERE = 0x%03X; want 0x202", got)
	}
}

func TestDisassembleRoundTrip(t *testing.T) {
	program := encodeWords(0x600A, 0x6100, 0x7101, 0x5100, 0x1204, 0x0000, 0xFFFF, 0xD015, 0xF355)
	program = append(program, 0xAB)

	lines := Disassemble(program)
	if len(lines) != 10 {
		t.Fatalf("expected 10 lines, got %d", len(lines))
	}
	if lines[4].Text != "jp $204" || lines[4].Addr != 0x208 {
		t.Errorf("line 4 = %+v", lines[4])
	}
	if !lines[6].Data || lines[6].Text != ".word $FFFF" {
		t.Errorf("expected undecodable word as data, got %+v", lines[6])
	}
	if !lines[9].Data || lines[9].Text != ".byte $AB" {
		t.Errorf("expected trailing byte as data, got %+v", lines[9])
	}

	again, _, err := Assemble(Source(lines))
	if err != nil {
		t.Fatalf("re-assemble failed: %v", err)
	}
	if !bytes.Equal(again, program) {
		t.Errorf("round trip = % X; want % X", again, program)
	}
}

// Every decodable word survives disassembly and assembly.
func TestEncodeEveryWord(t *testing.T) {
	a := NewAssembler()
	for w := 0; w <= 0xFFFF; w += 7 {
		word := uint16(w)
		text, err := opcode.Disassemble(byte(word>>8), byte(word))
		if err != nil {
			continue
		}
		p, err := parseLine(text, 1)
		if err != nil {
			t.Fatalf("parseLine(%q): %v", text, err)
		}
		ins, err := a.encode(p)
		if err != nil {
			t.Fatalf("encode(%q): %v", text, err)
		}
		if got := ins.Encode(); got != word {
			t.Errorf("%q encoded to 0x%04X; want 0x%04X", text, got, word)
		}
	}
}

func TestWriteListing(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteListing(&buf, Disassemble(encodeWords(0x00E0))); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "200: 00E0  cls\n" {
		t.Errorf("WriteListing = %q", got)
	}
}

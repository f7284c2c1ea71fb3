// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/hexvm/internal"
	"github.com/ezrec/hexvm/word"
)

// Section keywords.
const (
	SECTION_VARS  = "VARS"
	SECTION_FUNC  = "FUNC"
	SECTION_START = "START"

	FUNC_BEGIN = "FBEGIN"
	FUNC_END   = "FEND"
)

var reserved = []string{SECTION_VARS, SECTION_FUNC, SECTION_START, FUNC_BEGIN, FUNC_END}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Line is a single line of assembly source.
type Line struct {
	LineNo int    // Line number, starting at 1.
	Raw    string // Trimmed text, including any comment.
	Text   string // Trimmed text without its comment.
}

// patch is an instruction cell whose target is resolved after its section.
type patch struct {
	Line   Line
	Opcode int    // Index into Assembler.Opcode.
	Symbol string // Label or function name.
}

// Assembler is a two pass assembler for the hexvm system.
type Assembler struct {
	Verbose   bool // If set, verbosely logs the assembler actions.
	StackSize int  // Stack capacity written to the header. Zero selects STACK_LIMIT.

	Image    []word.Word       // Memory image under construction.
	Opcode   []Opcode          // List of generated opcodes.
	Var      map[string]int    // Map of string variables to addresses.
	Function map[string]int    // Map of function names to entry addresses.
	Label    map[string]int    // Map of labels in the current section.
	Equate   map[string]string // Map of equates.

	predefine map[string]string // Predefines

	labelPatch    []patch // Pending label targets of the current section.
	functionPatch []patch // Pending function targets.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// sysEquate returns the predefined system equates for a stack capacity.
func sysEquate(stackSize int) map[string]string {
	return map[string]string{
		"LINENO":         "0",
		"STACK_BASE":     fmt.Sprintf("%d", STACK_BASE),
		"STACK_SIZE":     fmt.Sprintf("%d", stackSize),
		"REGISTER_BASE":  fmt.Sprintf("%d", RegisterBase(stackSize)),
		"REGISTER_COUNT": fmt.Sprintf("%d", REGISTER_COUNT),
		"STRING_BASE":    fmt.Sprintf("%d", StringBase(stackSize)),
		"MEMORY_SIZE":    fmt.Sprintf("%d", MEMORY_SIZE),
	}
}

// valueOf returns the value of a literal word. Literals are decimal,
// leading zeros included, or hexadecimal with a 0x prefix.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	digits, base := word, 10
	if hex, ok := strings.CutPrefix(strings.ToLower(word), "0x"); ok {
		digits, base = hex, 16
	}

	value, err = strconv.ParseInt(digits, base, 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	return
}

// register returns the address of a register name.
func (asm *Assembler) register(name string) (reg byte, err error) {
	if len(name) < 2 || name[0] != 'r' {
		err = ErrRegisterInvalid
		return
	}

	index, perr := strconv.ParseUint(name[1:], 10, 8)
	if perr != nil || index >= REGISTER_COUNT {
		err = ErrRegisterInvalid
		return
	}

	addr := RegisterBase(asm.stackSize()) + int(index)
	if addr >= REGISTER_LIMIT {
		err = ErrRegisterInvalid
		return
	}

	reg = byte(addr)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v64 int64
		v64, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	for name, addr := range asm.Var {
		pred[name] = starlark.MakeInt(addr)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// expand does the $() evaluations of a line.
func (asm *Assembler) expand(line Line) (text string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", line.LineNo)

	re := regexp.MustCompile(`\$\([^\$]*\)`)
	text = re.ReplaceAllStringFunc(line.Text, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})

	return
}

// parseLine expands a line into words.
func (asm *Assembler) parseLine(line Line) (words []string, err error) {
	text, err := asm.expand(line)
	if err != nil {
		return
	}

	words = strings.Fields(text)

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	return
}

// currentIp gets the address of the next cell.
func (asm *Assembler) currentIp() int {
	return len(asm.Image)
}

func (asm *Assembler) stackSize() int {
	if asm.StackSize == 0 {
		return STACK_LIMIT
	}
	return asm.StackSize
}

// split reads the source into sections, processing .equ lines as it goes.
func (asm *Assembler) split(input io.Reader) (sections map[string][]Line, err error) {
	scanner := bufio.NewScanner(input)

	sections = make(map[string][]Line, 3)

	var current string
	var lineno int
	for scanner.Scan() {
		lineno++
		raw := strings.TrimSpace(scanner.Text())
		bare := strings.TrimSpace(strings.Split(raw, ";")[0])
		text := bare
		if current == SECTION_VARS {
			// The value of a variable may hold ';'.
			text = raw
		}
		line := Line{LineNo: lineno, Raw: raw, Text: text}

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, raw)
		}

		if len(bare) == 0 {
			continue
		}

		words := strings.Fields(bare)

		// .equ CONST VALUE
		if words[0] == ".equ" {
			text, err = asm.expand(Line{LineNo: lineno, Raw: raw, Text: bare})
			if err != nil {
				err = &ErrSyntax{LineNo: lineno, Line: raw, Err: err}
				return
			}
			words = strings.Fields(text)
			if len(words) != 3 {
				err = &ErrSyntax{LineNo: lineno, Line: raw, Err: ErrEquateSyntax}
				return
			}
			_, ok := asm.Equate[words[1]]
			if ok {
				err = &ErrSyntax{LineNo: lineno, Line: raw, Err: ErrEquateDuplicate}
				return
			}
			asm.Equate[words[1]] = words[2]
			continue
		}

		if len(words) == 1 {
			switch words[0] {
			case SECTION_VARS, SECTION_FUNC, SECTION_START:
				if _, ok := sections[words[0]]; ok {
					err = &ErrSyntax{LineNo: lineno, Line: raw, Err: ErrSectionDuplicate}
					return
				}
				current = words[0]
				sections[current] = nil
				continue
			}
		}

		if current == "" {
			err = &ErrSyntax{LineNo: lineno, Line: raw, Err: ErrInstructionInvalid}
			return
		}

		sections[current] = append(sections[current], line)
	}

	err = scanner.Err()

	return
}

// Parse parses an input stream into a Program containing a memory image.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	stackSize := asm.stackSize()
	if stackSize < 0 || StringBase(stackSize) > REGISTER_LIMIT {
		err = ErrStackSize
		return
	}

	asm.Image = make([]word.Word, StringBase(stackSize))
	asm.Opcode = asm.Opcode[:0]
	asm.Var = make(map[string]int)
	asm.Function = make(map[string]int)
	asm.Label = make(map[string]int)
	asm.labelPatch = nil
	asm.functionPatch = nil
	asm.Equate = make(map[string]string)
	for attr, val := range internal.IterSeq2Concat(maps.All(sysEquate(stackSize)), maps.All(asm.predefine)) {
		asm.Equate[attr] = val
	}

	sections, err := asm.split(input)
	if err != nil {
		return
	}

	err = asm.parseVars(sections[SECTION_VARS])
	if err != nil {
		return
	}

	err = asm.parseFunctions(sections[SECTION_FUNC])
	if err != nil {
		return
	}

	start, ok := sections[SECTION_START]
	if !ok {
		err = &ErrSyntax{Err: ErrStartMissing}
		return
	}

	entry := asm.currentIp()
	clear(asm.Label)
	for _, line := range start {
		err = asm.parseText(line)
		if err != nil {
			return
		}
	}

	err = asm.linkLabels()
	if err != nil {
		return
	}

	// Final linking of function calls.
	for _, fix := range asm.functionPatch {
		ip, ok := asm.Function[fix.Symbol]
		if !ok {
			err = &ErrSyntax{LineNo: fix.Line.LineNo, Line: fix.Line.Raw, Err: ErrFunctionMissing(fix.Symbol)}
			return
		}
		err = asm.link(fix, ip)
		if err != nil {
			return
		}
	}

	asm.Image[HEADER_IP] = word.Word(entry)
	asm.Image[HEADER_STACK] = word.Word(stackSize)

	prog = &Program{
		Image:   slices.Clone(asm.Image),
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// parseVars allocates the string pool.
func (asm *Assembler) parseVars(lines []Line) (err error) {
	for _, line := range lines {
		err = asm.parseVar(line)
		if err != nil {
			err = &ErrSyntax{LineNo: line.LineNo, Line: line.Raw, Err: err}
			return
		}
	}

	return
}

// parseVar allocates a single `name: "text"` string.
func (asm *Assembler) parseVar(line Line) (err error) {
	colon := strings.Index(line.Raw, ":")
	if colon < 0 {
		err = ErrVarSyntax
		return
	}
	name := strings.TrimSpace(line.Raw[:colon])
	value := strings.TrimSpace(line.Raw[colon+1:])
	if !identifier.MatchString(name) || !strings.HasPrefix(value, `"`) {
		err = ErrVarSyntax
		return
	}
	// The text is taken as-is up to the closing quote; there are no escapes.
	end := strings.Index(value[1:], `"`) + 1
	if end == 0 {
		err = ErrVarSyntax
		return
	}
	trailing := strings.TrimSpace(value[end+1:])
	if len(trailing) > 0 && trailing[0] != ';' {
		err = ErrVarSyntax
		return
	}
	text := value[1:end]
	if _, ok := asm.Var[name]; ok {
		err = ErrVarDuplicate
		return
	}

	chars, err := word.EncodeText(text)
	if err != nil {
		return
	}

	asm.Var[name] = asm.currentIp()
	asm.Image = append(asm.Image, word.Word(len(chars)))
	asm.Image = append(asm.Image, chars...)

	if asm.Verbose {
		log.Printf("%v: %v @%d (%d)", line.LineNo, name, asm.Var[name], len(chars))
	}

	return
}

// parseFunctions compiles the FBEGIN ... FEND blocks.
func (asm *Assembler) parseFunctions(lines []Line) (err error) {
	var begin *Line

	for n := range lines {
		line := lines[n]
		words := strings.Fields(line.Text)

		switch words[0] {
		case FUNC_BEGIN:
			if begin != nil {
				err = &ErrSyntax{LineNo: line.LineNo, Line: line.Raw, Err: ErrFunctionSyntax}
				return
			}
			if len(words) != 2 || !identifier.MatchString(words[1]) {
				err = &ErrSyntax{LineNo: line.LineNo, Line: line.Raw, Err: ErrFunctionSyntax}
				return
			}
			name := words[1]
			if _, ok := asm.Function[name]; ok {
				err = &ErrSyntax{LineNo: line.LineNo, Line: line.Raw, Err: ErrFunctionDuplicate}
				return
			}
			asm.Function[name] = asm.currentIp()
			clear(asm.Label)
			begin = &lines[n]
		case FUNC_END:
			if begin == nil || len(words) != 1 {
				err = &ErrSyntax{LineNo: line.LineNo, Line: line.Raw, Err: ErrFunctionSyntax}
				return
			}
			asm.emit(line, words, MakeCode(OP_FEND, 0, 0, 0))
			err = asm.linkLabels()
			if err != nil {
				return
			}
			begin = nil
		default:
			if begin == nil {
				err = &ErrSyntax{LineNo: line.LineNo, Line: line.Raw, Err: ErrFunctionSyntax}
				return
			}
			err = asm.parseText(line)
			if err != nil {
				return
			}
		}
	}

	if begin != nil {
		err = &ErrSyntax{LineNo: begin.LineNo, Line: begin.Raw, Err: ErrFunctionSyntax}
		return
	}

	return
}

// linkLabels resolves the label patches of the current section.
func (asm *Assembler) linkLabels() (err error) {
	for _, fix := range asm.labelPatch {
		ip, ok := asm.Label[fix.Symbol]
		if !ok {
			err = &ErrSyntax{LineNo: fix.Line.LineNo, Line: fix.Line.Raw, Err: ErrLabelMissing(fix.Symbol)}
			return
		}
		err = asm.link(fix, ip)
		if err != nil {
			return
		}
	}

	asm.labelPatch = asm.labelPatch[:0]

	return
}

// link rewrites the target of a patch site.
func (asm *Assembler) link(fix patch, ip int) (err error) {
	op := &asm.Opcode[fix.Opcode]

	err = checkTarget(op.Code.Op(), ip)
	if err != nil {
		err = &ErrSyntax{LineNo: fix.Line.LineNo, Line: fix.Line.Raw, Err: err}
		return
	}

	op.Code = op.Code.Patch(uint32(ip))
	asm.Image[op.Ip] = word.Word(op.Code)

	return
}

// checkTarget verifies an address fits the target field of an opcode.
func checkTarget(op CodeOp, ip int) (err error) {
	limit := ADDR_MASK
	if op.Form() == FORM_REG_JUMP {
		limit = IMM_MASK
	}
	if ip < 0 || ip > limit {
		err = ErrAddressRange
	}
	return
}

// emit appends an instruction cell.
func (asm *Assembler) emit(line Line, words []string, code Code) (index int) {
	index = len(asm.Opcode)
	asm.Opcode = append(asm.Opcode, Opcode{LineNo: line.LineNo, Ip: asm.currentIp(), Words: words, Code: code})
	asm.Image = append(asm.Image, word.Word(code))
	return
}

// parseText handles labels and instructions of a single line.
func (asm *Assembler) parseText(line Line) (err error) {
	defer func() {
		if err != nil {
			if _, ok := err.(*ErrSyntax); !ok {
				err = &ErrSyntax{LineNo: line.LineNo, Line: line.Raw, Err: err}
			}
		}
	}()

	words, err := asm.parseLine(line)
	if err != nil {
		return
	}

	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		err = asm.defineLabel(words[0][:len(words[0])-1])
		if err != nil {
			return
		}
		words = words[1:]
	}

	if len(words) == 0 {
		return
	}

	// A lone identifier is a label.
	if len(words) == 1 && !slices.Contains(reserved, words[0]) {
		if _, ok := mnemonicMap[words[0]]; !ok && identifier.MatchString(words[0]) {
			err = asm.defineLabel(words[0])
			return
		}
	}

	err = asm.parseWords(words, line)

	return
}

// defineLabel records a label at the current address.
func (asm *Assembler) defineLabel(label string) (err error) {
	if !identifier.MatchString(label) {
		err = ErrInstructionInvalid
		return
	}

	_, ok := asm.Label[label]
	if ok {
		err = ErrLabelDuplicate
		return
	}

	asm.Label[label] = asm.currentIp()
	return
}

// literal parses a MOVVAL literal.
func (asm *Assembler) literal(text string) (imm uint16, err error) {
	value, err := asm.valueOf(text)
	if err != nil {
		return
	}

	if value < 0 || value > IMM_MASK {
		err = ErrLiteralRange
		return
	}

	imm = uint16(value)
	return
}

// parseWords evaluates the words of an instruction.
func (asm *Assembler) parseWords(words []string, line Line) (err error) {
	op, ok := mnemonicMap[words[0]]
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	args := words[1:]

	want := 0
	switch op.Form() {
	case FORM_REG, FORM_ADDR:
		want = 1
	case FORM_REG_REG, FORM_REG_IMM, FORM_REG_JUMP:
		want = 2
	}
	if len(args) < want {
		err = ErrOpcodeValueMissing
		return
	}
	if len(args) > want {
		err = ErrOpcodeExtraArgs
		return
	}

	var code Code
	var label string
	var function string

	switch op.Form() {
	case FORM_NONE:
		code = MakeCode(op, 0, 0, 0)
	case FORM_REG:
		var a byte
		a, err = asm.register(args[0])
		if err != nil {
			return
		}
		code = MakeCode(op, a, 0, 0)
	case FORM_REG_REG:
		var a, b byte
		a, err = asm.register(args[0])
		if err != nil {
			return
		}
		b, err = asm.register(args[1])
		if err != nil {
			return
		}
		code = MakeCode(op, a, b, 0)
	case FORM_REG_IMM:
		var a byte
		a, err = asm.register(args[0])
		if err != nil {
			return
		}
		var imm uint16
		imm, err = asm.literal(args[1])
		if err != nil {
			return
		}
		code = MakeCodeImm(op, a, imm)
	case FORM_REG_JUMP:
		var a byte
		a, err = asm.register(args[0])
		if err != nil {
			return
		}
		code = MakeCodeImm(op, a, 0)
		label = args[1]
	case FORM_ADDR:
		code = MakeCodeAddr(op, 0)
		switch op {
		case OP_PRINTSTR:
			addr, ok := asm.Var[args[0]]
			if !ok {
				err = ErrVarMissing(args[0])
				return
			}
			code = MakeCodeAddr(op, uint32(addr))
		case OP_CALL:
			function = args[0]
		default:
			label = args[0]
		}
	}

	index := asm.emit(line, words, code)

	switch {
	case len(label) > 0:
		fix := patch{Line: line, Opcode: index, Symbol: label}
		ip, ok := asm.Label[label]
		if ok {
			err = asm.link(fix, ip)
		} else {
			asm.labelPatch = append(asm.labelPatch, fix)
		}
	case len(function) > 0:
		fix := patch{Line: line, Opcode: index, Symbol: function}
		ip, ok := asm.Function[function]
		if ok {
			err = asm.link(fix, ip)
		} else {
			asm.functionPatch = append(asm.functionPatch, fix)
		}
	}

	return
}

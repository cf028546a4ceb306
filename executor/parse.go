package executor

import (
	"regexp"
	"strconv"
	"strings"

	"vqlite/column"
)

var (
	reCreateTable = regexp.MustCompile(`(?is)^create\s+table\s+(\w+)\s*\((.*)\)\s*$`)
	reDropTable   = regexp.MustCompile(`(?is)^drop\s+table\s+(\w+)\s*$`)
	reShowTables  = regexp.MustCompile(`(?is)^show\s+tables\s*$`)
	reDescTable   = regexp.MustCompile(`(?is)^desc(?:ribe)?\s+(\w+)\s*$`)
	reInsert      = regexp.MustCompile(`(?is)^insert\s+into\s+(\w+)\s*(?:\(([^)]*)\))?\s*values\s*\((.*)\)\s*$`)
	reSelect      = regexp.MustCompile(`(?is)^select\s+(.*?)\s+from\s+(\w+)\s*(?:where\s+(.*))?$`)
	reUpdate      = regexp.MustCompile(`(?is)^update\s+(\w+)\s+set\s+(.*?)\s*(?:where\s+(.*))?$`)
	reDelete      = regexp.MustCompile(`(?is)^delete\s+from\s+(\w+)\s+where\s+(.*)$`)
	reWhere       = regexp.MustCompile(`(?s)^\s*(\w+)\s*(=|<|>)\s*(.+?)\s*$`)
)

// Prepare parses one line of the abstract command set from spec.md §6
// into a Statement. The SQL surface is deliberately small — spec.md §1
// treats it as an external collaborator to the storage/execution
// core — so this is a handful of regexes over a single-line statement,
// not a general grammar.
func Prepare(line string) (*Statement, PrepareResult, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, PrepareUnrecognizedStatement, nil
	}

	if m := reCreateTable.FindStringSubmatch(line); m != nil {
		schema, err := parseColumnDefs(m[2])
		if err != nil {
			return nil, PrepareSyntaxError, err
		}
		return &Statement{Type: StatementCreateTable, Table: m[1], Schema: schema}, PrepareSuccess, nil
	}
	if m := reDropTable.FindStringSubmatch(line); m != nil {
		return &Statement{Type: StatementDropTable, Table: m[1]}, PrepareSuccess, nil
	}
	if reShowTables.MatchString(line) {
		return &Statement{Type: StatementShowTables}, PrepareSuccess, nil
	}
	if m := reDescTable.FindStringSubmatch(line); m != nil {
		return &Statement{Type: StatementDescTable, Table: m[1]}, PrepareSuccess, nil
	}
	if m := reInsert.FindStringSubmatch(line); m != nil {
		return prepareInsert(m[1], m[2], m[3])
	}
	if m := reSelect.FindStringSubmatch(line); m != nil {
		return prepareSelect(m[1], m[2], m[3])
	}
	if m := reUpdate.FindStringSubmatch(line); m != nil {
		return prepareUpdate(m[1], m[2], m[3])
	}
	if m := reDelete.FindStringSubmatch(line); m != nil {
		return prepareDelete(m[1], m[2])
	}
	return nil, PrepareUnrecognizedStatement, nil
}

func prepareInsert(tableName, colList, valList string) (*Statement, PrepareResult, error) {
	var cols []string
	if strings.TrimSpace(colList) != "" {
		for _, c := range splitTopLevel(colList, ',') {
			cols = append(cols, strings.TrimSpace(c))
		}
	}
	var vals []interface{}
	for _, v := range splitTopLevel(valList, ',') {
		val, err := parseValue(strings.TrimSpace(v))
		if err != nil {
			return nil, PrepareSyntaxError, err
		}
		vals = append(vals, val)
	}
	if cols != nil && len(cols) != len(vals) {
		return nil, PrepareSyntaxError, errColumnValueCountMismatch
	}

	// The primary key is always the schema's first column (spec.md §3);
	// with no explicit column list it is the first value positionally,
	// otherwise it is whichever column is literally named "id".
	pkIdx := -1
	if cols == nil {
		pkIdx = 0
	} else {
		for i, c := range cols {
			if c == "id" {
				pkIdx = i
				break
			}
		}
	}
	if pkIdx >= 0 && pkIdx < len(vals) {
		if iv, ok := vals[pkIdx].(int32); ok && iv < 0 {
			return nil, PrepareNegativeID, errNegativeID
		}
	}
	return &Statement{Type: StatementInsert, Table: tableName, Columns: cols, Values: vals}, PrepareSuccess, nil
}

func prepareSelect(projection, tableName, where string) (*Statement, PrepareResult, error) {
	var cols []string
	p := strings.TrimSpace(projection)
	if p != "*" {
		for _, c := range splitTopLevel(p, ',') {
			cols = append(cols, strings.TrimSpace(c))
		}
	}
	cond, err := parseWhere(where)
	if err != nil {
		return nil, PrepareSyntaxError, err
	}
	return &Statement{Type: StatementSelect, Table: tableName, Select: cols, Where: cond}, PrepareSuccess, nil
}

func prepareUpdate(tableName, setList, where string) (*Statement, PrepareResult, error) {
	var assigns []Assignment
	for _, pair := range splitTopLevel(setList, ',') {
		eq := strings.IndexByte(pair, '=')
		if eq < 0 {
			return nil, PrepareSyntaxError, errSyntax
		}
		col := strings.TrimSpace(pair[:eq])
		val, err := parseValue(strings.TrimSpace(pair[eq+1:]))
		if err != nil {
			return nil, PrepareSyntaxError, err
		}
		assigns = append(assigns, Assignment{Column: col, Value: val})
	}
	cond, err := parseWhere(where)
	if err != nil {
		return nil, PrepareSyntaxError, err
	}
	return &Statement{Type: StatementUpdate, Table: tableName, Assignments: assigns, Where: cond}, PrepareSuccess, nil
}

func prepareDelete(tableName, where string) (*Statement, PrepareResult, error) {
	cond, err := parseWhere(where)
	if err != nil {
		return nil, PrepareSyntaxError, err
	}
	if cond == nil {
		return nil, PrepareSyntaxError, errDeleteRequiresWhere
	}
	return &Statement{Type: StatementDelete, Table: tableName, Where: cond}, PrepareSuccess, nil
}

func parseWhere(clause string) (*Condition, error) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return nil, nil
	}
	m := reWhere.FindStringSubmatch(clause)
	if m == nil {
		return nil, errSyntax
	}
	val, err := parseValue(m[3])
	if err != nil {
		return nil, err
	}
	var op Operator
	switch m[2] {
	case "=":
		op = OpEQ
	case "<":
		op = OpLT
	case ">":
		op = OpGT
	}
	return &Condition{Column: m[1], Op: op, Value: val}, nil
}

// parseColumnDefs parses "id int, name text(32), price double" into a
// Schema. "text" without an explicit length defaults to
// column.MaxTextLength.
func parseColumnDefs(defs string) (column.Schema, error) {
	var schema column.Schema
	for _, def := range splitTopLevel(defs, ',') {
		fields := strings.Fields(strings.TrimSpace(def))
		if len(fields) != 2 {
			return nil, errSyntax
		}
		name := fields[0]
		typeTok := strings.ToLower(fields[1])

		var ct column.ColumnType
		var maxLen uint32
		switch {
		case typeTok == "int":
			ct = column.ColumnTypeInt
		case typeTok == "double":
			ct = column.ColumnTypeDouble
		case typeTok == "text":
			ct = column.ColumnTypeText
			maxLen = column.MaxTextLength
		case strings.HasPrefix(typeTok, "text(") && strings.HasSuffix(typeTok, ")"):
			ct = column.ColumnTypeText
			n, err := strconv.Atoi(typeTok[len("text(") : len(typeTok)-1])
			if err != nil || n <= 0 || n > column.MaxTextLength {
				return nil, errSyntax
			}
			maxLen = uint32(n)
		default:
			return nil, errSyntax
		}
		schema = append(schema, column.Column{Name: name, Type: ct, MaxLength: maxLen})
	}
	return schema, nil
}

// parseValue converts one literal token into its Go-typed value:
// a quoted string, a float (contains '.', 'e' or 'E'), or an int32.
func parseValue(tok string) (interface{}, error) {
	tok = strings.TrimSpace(tok)
	if len(tok) >= 2 && (tok[0] == '\'' || tok[0] == '"') && tok[len(tok)-1] == tok[0] {
		return tok[1 : len(tok)-1], nil
	}
	if strings.ContainsAny(tok, ".eE") {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return f, nil
		}
	}
	if i, err := strconv.ParseInt(tok, 10, 32); err == nil {
		return int32(i), nil
	}
	return nil, errSyntax
}

// splitTopLevel splits s on sep, ignoring separators inside single or
// double quotes or nested parentheses.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

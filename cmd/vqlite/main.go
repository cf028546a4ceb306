// Command vqlite is the interactive shell over the storage/execution
// core: a readline REPL that prepares and executes one statement per
// line against a catalog-backed database directory (spec.md §6).
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"

	"vqlite/catalog"
	"vqlite/dberr"
	"vqlite/executor"
	"vqlite/table"
)

// MetaCommandResult mirrors the teacher's do_meta_command status enum.
type MetaCommandResult int

const (
	MetaCommandSuccess MetaCommandResult = iota
	MetaCommandUnrecognizedCommand
)

func main() {
	dbPath := "vqlite_data"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}

	cat, err := catalog.Open(dbPath, "vqlite")
	if err != nil {
		fmt.Fprintln(os.Stderr, "vqlite: open database:", err)
		os.Exit(1)
	}
	exec := executor.New(cat)

	rl, err := readline.New("db > ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "vqlite: readline:", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if err == io.EOF {
				break
			}
			fmt.Fprintln(os.Stderr, "vqlite: read input:", err)
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			switch doMetaCommand(line, cat) {
			case MetaCommandSuccess:
				continue
			case MetaCommandUnrecognizedCommand:
				fmt.Printf("Unrecognized command %q.\n", line)
				continue
			}
		}

		runStatement(exec, line)
	}

	if err := cat.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "vqlite: close database:", err)
		os.Exit(1)
	}
}

// doMetaCommand handles the "." prefixed debugging commands from
// spec.md §6: ".exit", ".btree <table>", ".constants <table>".
func doMetaCommand(line string, cat *catalog.Catalog) MetaCommandResult {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".exit":
		if err := cat.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "vqlite: close database:", err)
			os.Exit(1)
		}
		os.Exit(0)
	case ".btree":
		if len(fields) != 2 {
			fmt.Println("Usage: .btree <table>")
			return MetaCommandSuccess
		}
		tbl, _, ok := cat.Find(fields[1])
		if !ok {
			fmt.Printf("Table %q not found.\n", fields[1])
			return MetaCommandSuccess
		}
		lines, err := tbl.Dump()
		if err != nil {
			fmt.Fprintln(os.Stderr, "vqlite: dump tree:", err)
			return MetaCommandSuccess
		}
		for _, l := range lines {
			fmt.Println(l)
		}
	case ".constants":
		if len(fields) != 2 {
			fmt.Println("Usage: .constants <table>")
			return MetaCommandSuccess
		}
		tbl, _, ok := cat.Find(fields[1])
		if !ok {
			fmt.Printf("Table %q not found.\n", fields[1])
			return MetaCommandSuccess
		}
		printConstants(tbl.Meta)
	default:
		return MetaCommandUnrecognizedCommand
	}
	return MetaCommandSuccess
}

func printConstants(meta *table.Meta) {
	fmt.Println("Constants:")
	fmt.Printf("ROW_SIZE: %d\n", meta.RowSize)
	fmt.Printf("LEAF_CELL_SIZE: %d\n", meta.LeafCellSize)
	fmt.Printf("LEAF_SPACE_FOR_CELLS: %d\n", meta.LeafSpace)
	fmt.Printf("LEAF_MAX_CELLS: %d\n", meta.LeafMaxCells)
	fmt.Printf("LEFT_SPLIT_COUNT: %d\n", meta.LeftSplitCount)
	fmt.Printf("RIGHT_SPLIT_COUNT: %d\n", meta.RightSplitCount)
}

// runStatement prepares and executes one line, printing results or the
// diagnostic spec.md §7 attaches to each failure status.
func runStatement(exec *executor.Executor, line string) {
	stmt, prepResult, err := executor.Prepare(line)
	if prepResult != executor.PrepareSuccess {
		switch prepResult {
		case executor.PrepareUnrecognizedStatement:
			fmt.Printf("Unrecognized keyword at start of %q.\n", line)
		case executor.PrepareNegativeID:
			fmt.Println("ID must not be negative.")
		default:
			fmt.Println("Error:", err)
		}
		return
	}

	res, execResult, err := exec.Execute(stmt)
	if execResult != executor.ExecuteSuccess {
		if dberr.IsFatal(err) {
			logrus.WithError(err).Error("vqlite: fatal core invariant violation")
			panic(err)
		}
		fmt.Println("Error:", execResult, "-", err)
		return
	}
	printResult(res)
}

func printResult(res *executor.Result) {
	if res == nil {
		return
	}
	if len(res.Columns) > 0 {
		fmt.Println(strings.Join(res.Columns, "\t"))
	}
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	if res.Message != "" {
		fmt.Println(res.Message)
	}
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

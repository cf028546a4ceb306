// Package catalog implements the catalog component (spec.md §4.F): the
// bounded set of named tables a database exposes, backed by one table
// file per table plus a sidecar metadata file that persists the
// (name, schema) list across runs.
package catalog

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"vqlite/column"
	"vqlite/dberr"
	"vqlite/table"
)

// MaxTables bounds the catalog's open-table count (spec.md §4.F:
// "Bounded list (up to 100) of open tables").
const MaxTables = 100

type openTable struct {
	schema column.Schema
	tbl    *table.Table
}

// Catalog is the set of open tables backing one database directory.
// It is not safe for concurrent use (spec.md §5: single-threaded
// cooperative execution).
type Catalog struct {
	dir      string
	metaPath string
	order    []string
	tables   map[string]*openTable
}

// Open attaches to a database directory, creating it if necessary, and
// reads back every table named in the sidecar metadata file (if one
// exists), reopening each table file and validating its recomputed
// constants (spec.md §6).
func Open(dir, dbName string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, dberr.WrapFatal(err, "catalog: create db directory "+dir)
	}
	c := &Catalog{
		dir:      dir,
		metaPath: filepath.Join(dir, dbName+".meta"),
		tables:   make(map[string]*openTable),
	}

	records, err := readMetaFile(c.metaPath)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		tbl, err := table.Open(tableFilePath(dir, rec.name), rec.name, rec.schema)
		if err != nil {
			return nil, errors.Wrapf(err, "catalog: reopening table %q", rec.name)
		}
		c.tables[rec.name] = &openTable{schema: rec.schema, tbl: tbl}
		c.order = append(c.order, rec.name)
		logrus.WithFields(logrus.Fields{"table": rec.name, "columns": len(rec.schema)}).Debug("catalog: reopened table")
	}
	return c, nil
}

func tableFilePath(dir, name string) string {
	return filepath.Join(dir, name+".tbl")
}

func readMetaFile(path string) ([]*decodedRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, dberr.WrapFatal(err, "catalog: open sidecar "+path)
	}
	defer f.Close()

	var countBuf [4]byte
	if _, err := io.ReadFull(f, countBuf[:]); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, dberr.WrapFatal(err, "catalog: read sidecar table count")
	}
	count := binary.LittleEndian.Uint32(countBuf[:])

	records := make([]*decodedRecord, 0, count)
	buf := make([]byte, tableRecordSize)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, dberr.WrapFatal(err, "catalog: read sidecar table record")
		}
		rec, err := decodeTableRecord(buf)
		if err != nil {
			return nil, dberr.WrapFatal(err, "catalog: decode sidecar table record")
		}
		records = append(records, rec)
	}
	return records, nil
}

// Create opens the table file named after name (creating it if it does
// not exist; a file left behind by an earlier Drop is reopened as is)
// and registers it in the catalog, returning dberr.ErrTableExists or dberr.ErrTableFull
// as recoverable statuses (spec.md §4.F, §7).
func (c *Catalog) Create(name string, schema column.Schema) (*table.Table, error) {
	if _, ok := c.tables[name]; ok {
		return nil, errors.Wrapf(dberr.ErrTableExists, "table %q", name)
	}
	if len(c.tables) >= MaxTables {
		return nil, errors.Wrap(dberr.ErrTableFull, "catalog")
	}
	if _, err := table.BuildMeta(schema); err != nil {
		return nil, err
	}

	tbl, err := table.Open(tableFilePath(c.dir, name), name, schema)
	if err != nil {
		return nil, err
	}
	c.tables[name] = &openTable{schema: schema, tbl: tbl}
	c.order = append(c.order, name)
	logrus.WithFields(logrus.Fields{"table": name, "columns": len(schema)}).Debug("catalog: created table")
	return tbl, nil
}

// Drop closes and forgets a table. It does not delete the backing file
// (spec.md §4.F: "deleting the backing file is not required by the
// core").
func (c *Catalog) Drop(name string) error {
	ot, ok := c.tables[name]
	if !ok {
		return errors.Wrapf(dberr.ErrTableNotFound, "table %q", name)
	}
	if err := ot.tbl.Close(); err != nil {
		return err
	}
	delete(c.tables, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	logrus.WithField("table", name).Debug("catalog: dropped table")
	return nil
}

// Find looks up a table by name in the catalog's name-keyed map.
func (c *Catalog) Find(name string) (*table.Table, column.Schema, bool) {
	ot, ok := c.tables[name]
	if !ok {
		return nil, nil, false
	}
	return ot.tbl, ot.schema, true
}

// Tables lists every open table's name, sorted for stable SHOW TABLES
// output.
func (c *Catalog) Tables() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close flushes and closes every open table, then persists the sidecar
// metadata file (spec.md §6: written on clean close).
func (c *Catalog) Close() error {
	for _, name := range c.order {
		ot := c.tables[name]
		if err := ot.tbl.Close(); err != nil {
			return err
		}
	}
	if err := c.writeMetaFile(); err != nil {
		return err
	}
	logrus.WithField("tables", len(c.order)).Debug("catalog: closed")
	return nil
}

func (c *Catalog) writeMetaFile() error {
	f, err := os.OpenFile(c.metaPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return dberr.WrapFatal(err, "catalog: open sidecar for write "+c.metaPath)
	}
	defer f.Close()

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(c.order)))
	if _, err := f.Write(countBuf[:]); err != nil {
		return dberr.WrapFatal(err, "catalog: write sidecar table count")
	}

	for _, name := range c.order {
		ot := c.tables[name]
		meta, err := table.BuildMeta(ot.schema)
		if err != nil {
			return err
		}
		rec, err := encodeTableRecord(name, ot.schema, meta)
		if err != nil {
			return err
		}
		if _, err := f.Write(rec); err != nil {
			return dberr.WrapFatal(err, "catalog: write sidecar table record")
		}
	}
	return nil
}

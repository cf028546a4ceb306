// Package pager owns a single table file: it maps page numbers to
// in-memory page buffers, demand-reads pages from disk, caches them by
// identity, and flushes every resident page back on close. It implements
// spec.md §4.A.
package pager

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"vqlite/dberr"
)

const (
	// PageSize is the fixed size of every page, on disk and in memory.
	PageSize = 4096
	// MaxPages bounds the number of page slots a Pager will hold
	// resident at once. There is no eviction: running past this is
	// fatal, not a cache miss.
	MaxPages = 100
)

// Page is one resident 4096-byte buffer. The same *Page is returned by
// every GetPage call for a given page number for the lifetime of the
// Pager (cache identity, spec.md §5) — mutations through one reference
// are observable through all others, which is how the B+tree propagates
// a split without an explicit write-back step.
type Page struct {
	Data [PageSize]byte
}

// Pager owns the OS file handle and the fixed table of resident page
// slots.
type Pager struct {
	file     *os.File
	numPages uint32
	slots    [MaxPages]*Page
}

// Open opens (or creates) the table file at path. A file whose length
// is not a whole multiple of PageSize is rejected as corrupt: this is a
// fatal condition (spec.md §6), since the core has no way to know which
// partial page to trust.
func Open(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, dberr.WrapFatal(err, "pager: open "+path)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dberr.WrapFatal(err, "pager: stat "+path)
	}
	size := fi.Size()
	if size%PageSize != 0 {
		f.Close()
		return nil, dberr.Fatalf("pager: %s is %d bytes, not a whole multiple of the %d-byte page size (corrupt file)", path, size, PageSize)
	}
	p := &Pager{
		file:     f,
		numPages: uint32(size / PageSize),
	}
	logrus.WithFields(logrus.Fields{"path": path, "numPages": p.numPages}).Debug("pager: opened")
	return p, nil
}

// NumPages reports how many pages are logically part of the file —
// i.e. one past the highest page number ever materialised by GetPage.
func (p *Pager) NumPages() uint32 { return p.numPages }

// Resident returns the in-memory buffer for pageNum if it is already
// cached, without triggering a load. It returns nil when the page has
// never been fetched.
func (p *Pager) Resident(pageNum uint32) *Page {
	if pageNum >= MaxPages {
		return nil
	}
	return p.slots[pageNum]
}

// GetPage returns the resident buffer for pageNum, demand-loading it
// from disk (or zero-filling it, if it lies beyond the current end of
// file) on first access. Subsequent calls for the same pageNum return
// the identical *Page.
func (p *Pager) GetPage(pageNum uint32) (*Page, error) {
	if pageNum >= MaxPages {
		return nil, dberr.Fatalf("pager: page %d out of bounds (max %d pages)", pageNum, MaxPages)
	}
	if p.slots[pageNum] == nil {
		pg := &Page{}
		if pageNum < p.numPages {
			if _, err := p.file.Seek(int64(pageNum)*PageSize, io.SeekStart); err != nil {
				return nil, dberr.WrapFatal(err, "pager: seek page")
			}
			if _, err := io.ReadFull(p.file, pg.Data[:]); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
				return nil, dberr.WrapFatal(err, "pager: read page")
			}
		}
		p.slots[pageNum] = pg
		if pageNum >= p.numPages {
			p.numPages = pageNum + 1
		}
		logrus.WithField("page", pageNum).Debug("pager: materialised page")
	}
	return p.slots[pageNum], nil
}

// AllocatePage hands out the next unused page number. The page itself
// is only materialised (and counted in NumPages) on the following
// GetPage call.
func (p *Pager) AllocatePage() (uint32, error) {
	if p.numPages >= MaxPages {
		return 0, dberr.Fatalf("pager: cannot allocate beyond %d pages", MaxPages)
	}
	return p.numPages, nil
}

// FlushPage writes the full page buffer back to its slot in the file.
// Flushing a page that was never materialised is fatal — it would
// silently write a hole of zero bytes over real data.
func (p *Pager) FlushPage(pageNum uint32) error {
	if pageNum >= MaxPages {
		return dberr.Fatalf("pager: flush page %d out of bounds", pageNum)
	}
	pg := p.slots[pageNum]
	if pg == nil {
		return dberr.Fatalf("pager: flush of page %d: page was never loaded", pageNum)
	}
	if _, err := p.file.Seek(int64(pageNum)*PageSize, io.SeekStart); err != nil {
		return dberr.WrapFatal(err, "pager: seek for flush")
	}
	if _, err := p.file.Write(pg.Data[:]); err != nil {
		return dberr.WrapFatal(err, "pager: write page")
	}
	return nil
}

// Close flushes every resident page and closes the file handle. There
// is no dirty tracking: every materialised page is written back
// unconditionally, matching the original's db_close.
func (p *Pager) Close() error {
	for i := uint32(0); i < p.numPages; i++ {
		if p.slots[i] == nil {
			continue
		}
		if err := p.FlushPage(i); err != nil {
			return err
		}
	}
	logrus.Debug("pager: closed")
	return p.file.Close()
}

// FileSize returns the current on-disk size of the table file.
func (p *Pager) FileSize() (int64, error) {
	fi, err := p.file.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

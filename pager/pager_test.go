package pager

import (
	"os"
	"path/filepath"
	"testing"
)

// Test opening an empty pager file.
func TestOpenPagerEmptyFile(t *testing.T) {
	tmp, err := os.CreateTemp("", "pager_test_empty_*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if p.NumPages() != 0 {
		t.Errorf("expected 0 pages, got %d", p.NumPages())
	}

	size, err := p.FileSize()
	if err != nil {
		t.Fatalf("FileSize: %v", err)
	}
	if size != 0 {
		t.Errorf("expected file size 0, got %d", size)
	}
}

// GetPage on a brand-new file materialises a fresh, zero-filled page
// rather than erroring: spec.md §4.A says a page is created lazily on
// first read/write, zeroed if beyond end of file.
func TestGetPageLazyAllocates(t *testing.T) {
	tmp, err := os.CreateTemp("", "pager_test_lazy_*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	pg, err := p.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage(0) on empty pager: %v", err)
	}
	for i, b := range pg.Data {
		if b != 0 {
			t.Fatalf("expected zero-filled page, byte %d = 0x%X", i, b)
		}
	}
	if p.NumPages() != 1 {
		t.Errorf("expected NumPages()=1 after materialising page 0, got %d", p.NumPages())
	}
}

// GetPage beyond MaxPages is fatal.
func TestGetPageOutOfBounds(t *testing.T) {
	tmp, err := os.CreateTemp("", "pager_test_oob_*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if _, err := p.GetPage(MaxPages); err == nil {
		t.Errorf("expected fatal error fetching page %d (== MaxPages)", MaxPages)
	}
}

// A file whose length is not a whole multiple of PageSize is rejected
// as corrupt (spec.md §6), not silently treated as a partial page.
func TestOpenRejectsCorruptFileLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.db")

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	buf := make([]byte, 100)
	for i := range buf {
		buf[i] = 0xAA
	}
	if _, err := f.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f.Close()

	if _, err := Open(path); err == nil {
		t.Fatalf("expected Open to reject a %d-byte file as corrupt", len(buf))
	}
}

// Test AllocatePage, modifying, flushing, and verifying on-disk content.
func TestAllocateAndFlushPage(t *testing.T) {
	tmp, err := os.CreateTemp("", "pager_test_alloc_*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	pgNum, err := p.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if pgNum != 0 {
		t.Errorf("expected pgNum=0, got %d", pgNum)
	}

	pg, err := p.GetPage(pgNum)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	pg.Data[0] = 0xAB
	pg.Data[PageSize-1] = 0xCD

	if err := p.FlushPage(pgNum); err != nil {
		t.Fatalf("FlushPage: %v", err)
	}

	size, err := p.FileSize()
	if err != nil {
		t.Fatalf("FileSize: %v", err)
	}
	if size != PageSize {
		t.Errorf("expected file size %d, got %d", PageSize, size)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != PageSize {
		t.Fatalf("expected read data length %d, got %d", PageSize, len(data))
	}
	if data[0] != 0xAB {
		t.Errorf("expected byte 0 = 0xAB, got 0x%X", data[0])
	}
	if data[PageSize-1] != 0xCD {
		t.Errorf("expected byte at %d = 0xCD, got 0x%X", PageSize-1, data[PageSize-1])
	}
}

// FlushPage on a page that was never materialised is fatal.
func TestFlushNullPageIsFatal(t *testing.T) {
	tmp, err := os.CreateTemp("", "pager_test_flushnull_*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if err := p.FlushPage(5); err == nil {
		t.Errorf("expected FlushPage on an unloaded slot to fail")
	}
}

// Test loading an existing full page from disk.
func TestLoadExistingPage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exist.db")

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	buf := make([]byte, PageSize)
	for i := range buf {
		buf[i] = 0x01
	}
	if _, err := f.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f.Close()

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if p.NumPages() != 1 {
		t.Errorf("expected 1 page, got %d", p.NumPages())
	}
	pg, err := p.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if pg.Data[0] != 0x01 || pg.Data[PageSize-1] != 0x01 {
		t.Errorf("unexpected data in loaded page: first=0x%X last=0x%X", pg.Data[0], pg.Data[PageSize-1])
	}
}

// Test that GetPage can retrieve an allocated page by identity.
func TestGetPageAfterAllocateReturnsSameBuffer(t *testing.T) {
	tmp, err := os.CreateTemp("", "pager_test_afteralloc_*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	pgNum, err := p.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	first, err := p.GetPage(pgNum)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	retrieved, err := p.GetPage(pgNum)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if first != retrieved {
		t.Errorf("GetPage returned a different page instance")
	}
}

// Resident returns nil for pages never fetched, and the live buffer
// once GetPage has materialised them — this is what the B+tree relies
// on to peek at an already-loaded parent without forcing a load.
func TestResidentPeeksWithoutLoading(t *testing.T) {
	tmp, err := os.CreateTemp("", "pager_test_resident_*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if p.Resident(3) != nil {
		t.Errorf("expected Resident(3) to be nil before any GetPage")
	}
	pg, err := p.GetPage(3)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if p.Resident(3) != pg {
		t.Errorf("expected Resident(3) to return the materialised buffer")
	}
}

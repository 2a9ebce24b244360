package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
)

// XLSXStore persists tables in an Excel workbook, one sheet per table.
// This is the spreadsheet-as-database backend: every Write rebuilds the
// workbook and saves it over the target path, matching the
// whole-table-replace contract exactly.
type XLSXStore struct {
	path string
	mu   sync.Mutex
}

var _ TableStore = (*XLSXStore)(nil)

// NewXLSX creates a store backed by the workbook at path. The file is
// created on first write; until then every table reads as empty.
func NewXLSX(path string) *XLSXStore {
	return &XLSXStore{path: path}
}

func (s *XLSXStore) Read(ctx context.Context, table string) ([]string, []Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, nil, &IOError{Op: "read", Table: table, Err: err}
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(table)
	if err != nil {
		return nil, nil, &IOError{Op: "read", Table: table, Err: err}
	}
	if idx < 0 {
		return nil, nil, nil
	}

	raw, err := f.GetRows(table)
	if err != nil {
		return nil, nil, &IOError{Op: "read", Table: table, Err: err}
	}
	if len(raw) == 0 {
		return nil, nil, nil
	}

	columns := raw[0]
	rows := make([]Row, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := make(Row, len(columns))
		for i, col := range columns {
			// GetRows trims trailing empty cells, so pad by position.
			if i < len(cells) {
				row[col] = cells[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return columns, rows, nil
}

func (s *XLSXStore) Write(ctx context.Context, table string, columns []string, rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Carry unrelated sheets through the rewrite so other tables survive.
	others, err := s.otherSheets(table)
	if err != nil {
		return &IOError{Op: "write", Table: table, Err: err}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", table); err != nil {
		return &IOError{Op: "write", Table: table, Err: err}
	}

	for i, col := range columns {
		if err := setCell(f, table, i+1, 1, col); err != nil {
			return &IOError{Op: "write", Table: table, Err: err}
		}
	}
	for r, row := range rows {
		for i, col := range columns {
			if err := setCell(f, table, i+1, r+2, row[col]); err != nil {
				return &IOError{Op: "write", Table: table, Err: err}
			}
		}
	}

	for _, sheet := range others {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return &IOError{Op: "write", Table: table, Err: err}
		}
		for r, cells := range sheet.rows {
			for c, val := range cells {
				if err := setCell(f, sheet.name, c+1, r+1, val); err != nil {
					return &IOError{Op: "write", Table: table, Err: err}
				}
			}
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return &IOError{Op: "write", Table: table, Err: err}
	}
	return nil
}

type rawSheet struct {
	name string
	rows [][]string
}

// otherSheets snapshots every sheet except the one being rewritten.
func (s *XLSXStore) otherSheets(table string) ([]rawSheet, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sheets []rawSheet
	for _, name := range f.GetSheetList() {
		if name == table {
			continue
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, rawSheet{name: name, rows: rows})
	}
	return sheets, nil
}

func setCell(f *excelize.File, sheet string, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

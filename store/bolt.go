package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Bolt is the embedded-file backend. One bucket per table, keys are 1-based
// big-endian row numbers (key 1 = header), values are JSON-encoded cell
// slices.
type Bolt struct {
	db *bolt.DB
}

func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) CreateTable(table string, header []string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return err
		}
		if bkt.Get(rowKey(1)) != nil {
			return nil
		}
		return putCells(bkt, 1, header)
	})
}

func (b *Bolt) ReadAll(table string) ([]Row, error) {
	var out []Row
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(table))
		if bkt == nil {
			return fmt.Errorf("%w: %s", ErrTableNotFound, table)
		}

		header, err := getCells(bkt, 1)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrTableNotFound, table)
		}

		c := bkt.Cursor()
		for k, v := c.Seek(rowKey(2)); k != nil; k, v = c.Next() {
			var cells []string
			if err := json.Unmarshal(v, &cells); err != nil {
				return err
			}
			out = append(out, rowFromCells(header, cells, int(binary.BigEndian.Uint64(k))))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Bolt) AppendRow(table string, values []string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(table))
		if bkt == nil {
			return fmt.Errorf("%w: %s", ErrTableNotFound, table)
		}

		last, _ := bkt.Cursor().Last()
		if last == nil {
			return fmt.Errorf("%w: %s", ErrTableNotFound, table)
		}
		next := binary.BigEndian.Uint64(last) + 1
		return putCells(bkt, next, values)
	})
}

func (b *Bolt) SetCell(table string, rowNum int, column string, value string) error {
	if rowNum < 2 {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowNum)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(table))
		if bkt == nil {
			return fmt.Errorf("%w: %s", ErrTableNotFound, table)
		}

		header, err := getCells(bkt, 1)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrTableNotFound, table)
		}
		col := columnIndex(header, column)
		if col == -1 {
			return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, table, column)
		}

		cells, err := getCells(bkt, uint64(rowNum))
		if err != nil {
			return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowNum)
		}
		cells = padCells(cells, col+1)
		cells[col] = value
		return putCells(bkt, uint64(rowNum), cells)
	})
}

func (b *Bolt) DeleteRow(table string, rowNum int) error {
	if rowNum < 2 {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowNum)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(table))
		if bkt == nil {
			return fmt.Errorf("%w: %s", ErrTableNotFound, table)
		}
		if bkt.Get(rowKey(uint64(rowNum))) == nil {
			return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowNum)
		}

		// Shift every later row up by one to keep the positional contract.
		// Collected first: a bbolt cursor is not stable across Puts.
		type shifted struct {
			num   uint64
			cells []byte
		}
		var tail []shifted
		c := bkt.Cursor()
		for k, v := c.Seek(rowKey(uint64(rowNum) + 1)); k != nil; k, v = c.Next() {
			tail = append(tail, shifted{binary.BigEndian.Uint64(k), append([]byte(nil), v...)})
		}

		last := uint64(rowNum)
		for _, row := range tail {
			if err := bkt.Put(rowKey(row.num-1), row.cells); err != nil {
				return err
			}
			last = row.num
		}
		return bkt.Delete(rowKey(last))
	})
}

func rowKey(num uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, num)
	return key
}

func putCells(bkt *bolt.Bucket, num uint64, cells []string) error {
	data, err := json.Marshal(cells)
	if err != nil {
		return err
	}
	return bkt.Put(rowKey(num), data)
}

func getCells(bkt *bolt.Bucket, num uint64) ([]string, error) {
	data := bkt.Get(rowKey(num))
	if data == nil {
		return nil, fmt.Errorf("row %d missing", num)
	}
	var cells []string
	if err := json.Unmarshal(data, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

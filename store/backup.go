package store

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/klauspost/compress/zstd"
)

// backupVersion is the version of the backup format written by Backup.
const backupVersion = 1

// ErrBackupVersion is returned by Restore for backups of an unknown version.
var ErrBackupVersion = errors.New("store: unsupported backup version")

// backupHeader is the first line of a backup.
type backupHeader struct {
	Version   int       `json:"version"`
	Dimension int32     `json:"dimension"`
	Created   time.Time `json:"created"`
	Records   int       `json:"records"`
}

// record is a block entity record of a backup.
type record struct {
	Key   []byte
	Value []byte
}

// Backup writes the block entity records of the dimension to w as a zstd
// compressed stream. It returns the number of records written.
func (db *DB) Backup(w io.Writer) (int, error) {
	var recs []record
	iter := db.ldb.NewIterator(nil, nil)
	for iter.Next() {
		_, dim, ok := parseKey(iter.Key())
		if !ok || dim != db.conf.Dimension {
			continue
		}
		recs = append(recs, record{
			Key:   append([]byte(nil), iter.Key()...),
			Value: append([]byte(nil), iter.Value()...),
		})
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("store: backup: iterate: %w", err)
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, fmt.Errorf("store: backup: %w", err)
	}
	bw := bufio.NewWriterSize(zw, 256<<10)

	hdr, err := json.Marshal(backupHeader{
		Version:   backupVersion,
		Dimension: db.conf.Dimension,
		Created:   time.Now().UTC(),
		Records:   len(recs),
	})
	if err != nil {
		_ = zw.Close()
		return 0, fmt.Errorf("store: backup: header: %w", err)
	}
	if _, err := bw.Write(append(hdr, '\n')); err != nil {
		_ = zw.Close()
		return 0, fmt.Errorf("store: backup: header: %w", err)
	}
	enc := gob.NewEncoder(bw)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			_ = zw.Close()
			return 0, fmt.Errorf("store: backup: encode: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		_ = zw.Close()
		return 0, fmt.Errorf("store: backup: flush: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("store: backup: close: %w", err)
	}
	db.conf.Log.Info("store: backup written", "dimension", db.conf.Dimension, "records", len(recs))
	return len(recs), nil
}

// Restore replaces the block entity records of the dimension with those of a
// backup written by Backup. Records of other dimensions are left untouched.
// The restore is applied as a single batch. It returns the number of records
// restored.
func (db *DB) Restore(r io.Reader) (int, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("store: restore: %w", err)
	}
	defer zr.Close()
	br := bufio.NewReaderSize(zr, 256<<10)

	line, err := br.ReadBytes('\n')
	if err != nil {
		return 0, fmt.Errorf("store: restore: header: %w", err)
	}
	var hdr backupHeader
	if err := json.Unmarshal(line, &hdr); err != nil {
		return 0, fmt.Errorf("store: restore: header: %w", err)
	}
	if hdr.Version != backupVersion {
		return 0, fmt.Errorf("%w: %d", ErrBackupVersion, hdr.Version)
	}
	if hdr.Dimension != db.conf.Dimension {
		return 0, fmt.Errorf("store: restore: backup of dimension %d into dimension %d", hdr.Dimension, db.conf.Dimension)
	}

	batch := new(leveldb.Batch)
	iter := db.ldb.NewIterator(nil, nil)
	for iter.Next() {
		if _, dim, ok := parseKey(iter.Key()); ok && dim == db.conf.Dimension {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("store: restore: iterate: %w", err)
	}

	dec := gob.NewDecoder(br)
	n := 0
	for n < hdr.Records {
		var rec record
		if err := dec.Decode(&rec); err != nil {
			return 0, fmt.Errorf("store: restore: record %d: %w", n, err)
		}
		if _, dim, ok := parseKey(rec.Key); !ok || dim != hdr.Dimension {
			return 0, fmt.Errorf("store: restore: record %d: invalid key %x", n, rec.Key)
		}
		batch.Put(rec.Key, rec.Value)
		n++
	}
	if err := db.ldb.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("store: restore: write: %w", err)
	}
	db.conf.Log.Info("store: backup restored", "dimension", hdr.Dimension, "records", n, "created", hdr.Created)
	return n, nil
}

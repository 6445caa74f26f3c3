// Package journal records the steps of running machines in a BoltDB
// file so that a run can be inspected or replayed later.
//
// Each machine gets a bucket named by its id.  Keys are big-endian
// sequence numbers, and values are JSON Records.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Comcast/rxfsm/core"

	bolt "go.etcd.io/bbolt"
)

// Record is one journal entry.
type Record struct {
	Seq    uint64       `json:"seq"`
	At     time.Time    `json:"at"`
	Stride *core.Stride `json:"stride,omitempty"`
	Error  string       `json:"error,omitempty"`

	// Fatal marks the record of the error that stopped the
	// machine.
	Fatal bool `json:"fatal,omitempty"`
}

var NotFound = errors.New("not found")

// Journal is a BoltDB step journal.
type Journal struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	filename string
	db       *bolt.DB
}

// Open opens (or creates) the journal file.
func Open(filename string) (*Journal, error) {
	opts := &bolt.Options{
		Timeout: time.Second,
	}
	db, err := bolt.Open(filename, 0644, opts)
	if err != nil {
		return nil, err
	}
	return &Journal{
		filename: filename,
		db:       db,
	}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}

func key(seq uint64) []byte {
	bs := make([]byte, 8)
	binary.BigEndian.PutUint64(bs, seq)
	return bs
}

// Append adds a record for the machine.  The record's Seq is assigned.
func (j *Journal) Append(machine string, r *Record) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(machine))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		r.Seq = seq
		if r.At.IsZero() {
			r.At = time.Now().UTC()
		}
		js, err := json.Marshal(r)
		if err != nil {
			return err
		}
		return b.Put(key(seq), js)
	})
}

// Hooks returns core.Hooks that record every step and the failure (if
// any) of each machine.
//
// Append errors are logged.
func (j *Journal) Hooks() core.Hooks {
	return core.Hooks{
		OnStep: func(machine string, stride *core.Stride, err error) {
			r := &Record{Stride: stride}
			if err != nil {
				r.Error = err.Error()
			}
			if err := j.Append(machine, r); err != nil {
				j.logger().Error("journal append", "machine", machine, "error", err)
			}
		},
		OnFail: func(machine string, err error) {
			r := &Record{Error: err.Error(), Fatal: true}
			if err := j.Append(machine, r); err != nil {
				j.logger().Error("journal append", "machine", machine, "error", err)
			}
		},
	}
}

// Machines returns the ids of the journaled machines (in key order).
func (j *Journal) Machines() ([]string, error) {
	var acc []string
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			acc = append(acc, string(name))
			return nil
		})
	})
	return acc, err
}

// Read returns the machine's records in order.
func (j *Journal) Read(machine string) ([]*Record, error) {
	var acc []*Record
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(machine))
		if b == nil {
			return NotFound
		}
		c := b.Cursor()
		for k, bs := c.First(); k != nil; k, bs = c.Next() {
			var r Record
			if err := json.Unmarshal(bs, &r); err != nil {
				return err
			}
			acc = append(acc, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Inputs returns the inputs the machine was stepped with, leaving out
// the initial INIT event, which core.Replay supplies.
func (j *Journal) Inputs(machine string) ([]core.Input, error) {
	rs, err := j.Read(machine)
	if err != nil {
		return nil, err
	}
	acc := make([]core.Input, 0, len(rs))
	for i, r := range rs {
		if r.Stride == nil {
			continue
		}
		in := r.Stride.Input
		if i == 0 && in.Kind == core.EventKind && in.Name == core.InitEvent {
			continue
		}
		acc = append(acc, in)
	}
	return acc, nil
}

// Remove deletes the machine's records.
func (j *Journal) Remove(machine string) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(machine))
		if err == bolt.ErrBucketNotFound {
			return NotFound
		}
		return err
	})
}

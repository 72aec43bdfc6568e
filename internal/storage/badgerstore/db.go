package badgerstore

import (
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v3"

	"github.com/ledgercore/node/pkg/interfaces"
)

// DB owns the single BadgerDB handle both the block store and the wallet
// store are built over, split by key prefix rather than opened as two
// separate databases. A block append and the wallet writes it drives still
// commit as separate BadgerDB transactions.
type DB struct {
	db     *badgerdb.DB
	logger interfaces.Logger
}

// Open creates the data directory if needed and opens BadgerDB over it.
func Open(opts Options, logger interfaces.Logger) (*DB, error) {
	if opts.Path == "" {
		opts = DefaultOptions()
	}
	if err := os.MkdirAll(opts.Path, 0o700); err != nil {
		return nil, fmt.Errorf("badgerstore: create data dir: %w", err)
	}

	bopts := badgerdb.DefaultOptions(opts.Path)
	bopts.SyncWrites = opts.SyncWrites
	bopts.MemTableSize = opts.MemTableSize
	bopts.Logger = &badgerLogger{logger: logger.With("module", "badger")}

	db, err := badgerdb.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	return &DB{db: db, logger: logger.With("module", "badgerstore")}, nil
}

// Close releases the underlying database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// badgerLogger adapts interfaces.Logger to BadgerDB's own printf-style
// logging interface.
type badgerLogger struct {
	logger interfaces.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}
func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}
func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

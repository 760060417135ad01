package dirwatch

import "github.com/bft-labs/batchship/pkg/batchship"

// WithDirWatch returns a batchship Option that ingests files dropped into
// cfg.Dir.
//
// Usage:
//
//	b, err := batchship.New(cfg,
//	    dirwatch.WithDirWatch(dirwatch.Config{
//	        Dir:           "/var/spool/batchship/inbox",
//	        DebounceDelay: 200 * time.Millisecond,
//	    }),
//	)
func WithDirWatch(cfg Config) batchship.Option {
	return batchship.WithPlugin(New(cfg))
}

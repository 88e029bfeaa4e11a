package logs

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/hpcloud/tail"

	"github.com/apx-dev/apx/internal/logging"
)

// Follow streams appended log entries from every selected process file
// under logDir until ctx is cancelled. Files that do not exist yet are
// waited on, so a process started later still shows up. The returned
// channel is closed when all tails have shut down.
func Follow(ctx context.Context, logDir string, f Filter, log *logging.Logger) (<-chan Entry, error) {
	if log == nil {
		log = logging.NopLogger()
	}

	out := make(chan Entry, 64)
	var wg sync.WaitGroup

	for _, name := range Processes {
		if !f.wantsProcess(name) {
			continue
		}

		t, err := tail.TailFile(filepath.Join(logDir, name+".log"), tail.Config{
			Follow:    true,
			ReOpen:    true,
			MustExist: false,
			Location:  &tail.SeekInfo{Offset: 0, Whence: 2}, // end of file
			Logger:    tail.DiscardingLogger,
		})
		if err != nil {
			return nil, err
		}

		wg.Add(1)
		go func(name string, t *tail.Tail) {
			defer wg.Done()
			defer func() { _ = t.Stop() }()

			for {
				select {
				case <-ctx.Done():
					return
				case line, ok := <-t.Lines:
					if !ok {
						return
					}
					if line.Err != nil {
						log.Warn("tail error", "process", name, "error", line.Err)
						continue
					}
					select {
					case out <- ParseLine(line.Text, name):
					case <-ctx.Done():
						return
					}
				}
			}
		}(name, t)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

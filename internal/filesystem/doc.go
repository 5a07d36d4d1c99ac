/*
Package filesystem is the host filesystem layer consumed by the crawler.

# Interfaces

FS resolves a canonical root and opens directories for listing. Dir returns
entries in batches; each Entry carries a name and a kind (file, directory or
other). Symbolic links are reported as KindOther and are never followed.

# OS implementation

OS implements FS over the local operating system. Stat and open calls are
wrapped with retry logic for NFS stale file handle errors (ESTALE):

	fsys := filesystem.NewOS()
	dir, err := fsys.OpenDir("/srv/data")
	if err != nil {
	    return err
	}
	defer dir.Close()

	for {
	    entries, err := dir.ReadEntries(32)
	    // ...
	    if err == io.EOF {
	        break
	    }
	}

# Retry Behavior

The retry logic implements exponential backoff with the following defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

Only ESTALE triggers retries. All other errors fail immediately.

# Metrics

Operations are reported to an Observer. The metrics package provides the
Prometheus implementation; install it once at startup with SetObserver, or
per filesystem through RetryConfig.Observer.
*/
package filesystem

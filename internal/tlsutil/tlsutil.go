package tlsutil

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// CertificateLoader serves a TLS key pair and reloads it when either file
// changes on disk.
type CertificateLoader struct {
	certPath string
	keyPath  string

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// NewCertificateLoader loads the key pair and starts watching it. The
// containing directories are watched rather than the files themselves so
// that rotation by rename is picked up.
func NewCertificateLoader(certPath, keyPath string) (*CertificateLoader, error) {
	cl := &CertificateLoader{
		certPath: filepath.Clean(certPath),
		keyPath:  filepath.Clean(keyPath),
		done:     make(chan struct{}),
	}

	if err := cl.load(); err != nil {
		return nil, fmt.Errorf("initial certificate load: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	cl.watcher = watcher

	dirs := map[string]bool{filepath.Dir(cl.certPath): true, filepath.Dir(cl.keyPath): true}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go cl.watchLoop()
	return cl, nil
}

func (cl *CertificateLoader) load() error {
	cert, err := tls.LoadX509KeyPair(cl.certPath, cl.keyPath)
	if err != nil {
		return err
	}
	cl.mu.Lock()
	cl.cert = &cert
	cl.mu.Unlock()
	return nil
}

func (cl *CertificateLoader) watchLoop() {
	for {
		select {
		case event, ok := <-cl.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)
			if name != cl.certPath && name != cl.keyPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// The pair may be mid-rotation; a failed load keeps the old one.
			if err := cl.load(); err != nil {
				slog.Warn("certificate reload failed, keeping previous", "file", name, "error", err)
			} else {
				slog.Info("certificate reloaded", "file", name)
			}
		case err, ok := <-cl.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("certificate watcher error", "error", err)
		case <-cl.done:
			return
		}
	}
}

// GetCertificate returns the current certificate. Suitable for use as
// tls.Config.GetCertificate callback.
func (cl *CertificateLoader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.cert, nil
}

// Close stops the file watcher.
func (cl *CertificateLoader) Close() error {
	var err error
	cl.closeOnce.Do(func() {
		close(cl.done)
		err = cl.watcher.Close()
	})
	return err
}

// NewServerTLSConfig returns a TLS configuration for the HTTP API that serves
// the loader's current certificate.
func NewServerTLSConfig(cl *CertificateLoader) *tls.Config {
	return &tls.Config{
		GetCertificate: cl.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

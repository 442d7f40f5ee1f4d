package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNoCertsFound is returned when a bundle yields no usable certificate.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in bundle")

	// ErrBundleUnset is returned when the bundle variable is not set.
	ErrBundleUnset = errors.New("tlsroots: bundle variable not set")
)

// Pool is a set of trusted roots loaded from aggregated bundles.
type Pool struct {
	certPool *x509.CertPool
	count    int
}

// NewPool creates a pool seeded with the system roots, or an empty one
// where the platform exposes none.
func NewPool() *Pool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}
}

// NewEmptyPool creates a pool without system roots.
func NewEmptyPool() *Pool {
	return &Pool{certPool: x509.NewCertPool()}
}

// AddBundleFromEnv loads the bundle published in envVar.
func (p *Pool) AddBundleFromEnv(envVar string) (int, error) {
	path := os.Getenv(envVar)
	if path == "" {
		return 0, fmt.Errorf("%w: %s", ErrBundleUnset, envVar)
	}
	return p.AddBundleFile(path)
}

// AddBundleFile loads every certificate of a bundle file.
func (p *Pool) AddBundleFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("tlsroots: read bundle %s: %w", path, err)
	}
	return p.AddBundlePEM(data)
}

// AddBundlePEM adds each CERTIFICATE block of data and returns how many
// were accepted. Store entries carry a text dump around their PEM block,
// which pem.Decode skips; blocks that fail to parse are skipped as well.
func (p *Pool) AddBundlePEM(data []byte) (int, error) {
	added := 0
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			continue
		}
		p.certPool.AddCert(cert)
		added++
	}

	p.count += added
	if added == 0 {
		return 0, ErrNoCertsFound
	}
	return added, nil
}

// Count returns how many certificates were added through bundles.
func (p *Pool) Count() int {
	return p.count
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// TLSConfig creates a client TLS config trusting this pool.
func (p *Pool) TLSConfig() *tls.Config {
	return &tls.Config{
		RootCAs:    p.certPool,
		MinVersion: tls.VersionTLS12,
	}
}

// Package smb serves an SMB share as a document tree. Document IDs are
// "<share>:<rel>".
package smb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hirochachacha/go-smb2"

	"docbridge/internal/constants"
	"docbridge/internal/logging"
	"docbridge/internal/metrics"
	"docbridge/internal/provider"
	"docbridge/internal/secret"
)

// TypeName is the registry type of SMB providers.
const TypeName = "smb"

// Config is the provider configuration block.
type Config struct {
	Host     string `json:"host"`
	Port     string `json:"port,omitempty"`
	Share    string `json:"share"`
	Domain   string `json:"domain,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	// Persist stores credentials in the secret store after a successful mount.
	Persist bool `json:"persist,omitempty"`
}

// ParseConfig decodes and validates a JSON configuration block.
func ParseConfig(raw json.RawMessage) (Config, error) {
	var c Config
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c); err != nil {
			return c, err
		}
	}
	if c.Host == "" || c.Share == "" {
		return c, errors.New("smb provider requires host and share")
	}
	if c.Port == "" {
		c.Port = constants.SMBPort
	}
	return c, nil
}

// Provider talks to one share. Every operation dials its own session, the
// way a short-lived mount would.
type Provider struct {
	cfg   Config
	creds *credentialCache
}

// New returns an SMB provider. store may be nil.
func New(cfg Config, store secret.Store) *Provider {
	var fallback CredentialSource
	if cfg.Username != "" || cfg.Password != "" || cfg.Domain != "" {
		fallback = StaticCredentials{Domain: cfg.Domain, Username: cfg.Username, Password: cfg.Password}
	}
	return &Provider{cfg: cfg, creds: newCredentialCache(store, fallback, cfg.Persist)}
}

func (p *Provider) Type() string { return TypeName }

// RootID returns the document ID of the share root.
func (p *Provider) RootID() string { return provider.PathID(p.cfg.Share, "") }

// mount dials the server and mounts the share. release undoes all of it.
func (p *Provider) mount(ctx context.Context) (share *smb2.Share, release func(), err error) {
	start := time.Now()
	defer func() { metrics.RecordProviderQuery(TypeName, time.Since(start)) }()

	cr := p.creds.get(p.cfg.Host, p.cfg.Share)
	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     cr.Username,
			Password: cr.Password,
			Domain:   cr.Domain,
		},
	}

	nd := net.Dialer{Timeout: constants.SMBDialTimeout}
	conn, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(p.cfg.Host, p.cfg.Port))
	if err != nil {
		return nil, nil, err
	}

	sess, err := d.DialContext(ctx, conn)
	if err != nil {
		conn.Close()
		if isAuthError(err) {
			p.creds.rejected(p.cfg.Host, p.cfg.Share)
		}
		return nil, nil, err
	}

	sh, err := sess.Mount(p.cfg.Share)
	if err != nil {
		_ = sess.Logoff()
		conn.Close()
		if isAuthError(err) {
			p.creds.rejected(p.cfg.Host, p.cfg.Share)
		}
		return nil, nil, err
	}
	p.creds.accepted(p.cfg.Host, p.cfg.Share, cr)

	release = func() {
		_ = sh.Umount()
		_ = sess.Logoff()
		conn.Close()
	}
	return sh.WithContext(ctx), release, nil
}

// sharePath maps a document ID to a path relative to the share root.
func (p *Provider) sharePath(id string) (string, error) {
	name, rel, err := provider.SplitPathID(id)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(name, p.cfg.Share) {
		return "", fmt.Errorf("document %q: %w", id, os.ErrNotExist)
	}
	if rel == "." {
		return "", nil
	}
	return rel, nil
}

func (p *Provider) OpenDocument(ctx context.Context, id string, mode provider.Mode) (provider.Document, error) {
	rel, err := p.sharePath(id)
	if err != nil {
		return nil, err
	}
	sh, release, err := p.mount(ctx)
	if err != nil {
		return nil, err
	}
	f, err := sh.OpenFile(rel, mode.Flag(), 0o644)
	if err != nil {
		release()
		return nil, err
	}
	return &document{File: f, release: release}, nil
}

func (p *Provider) QueryDocument(ctx context.Context, id string) (provider.Row, error) {
	rel, err := p.sharePath(id)
	if err != nil {
		return provider.Row{}, err
	}
	sh, release, err := p.mount(ctx)
	if err != nil {
		return provider.Row{}, err
	}
	defer release()

	statPath := rel
	if statPath == "" {
		statPath = "."
	}
	fi, err := sh.Stat(statPath)
	if err != nil {
		return provider.Row{}, err
	}
	row := provider.RowFromFileInfo(id, fi)
	if rel == "" {
		row.DisplayName = p.cfg.Share
	}
	return row, nil
}

func (p *Provider) QueryChildDocuments(ctx context.Context, parentID string) (provider.Cursor, error) {
	rel, err := p.sharePath(parentID)
	if err != nil {
		return nil, err
	}
	sh, release, err := p.mount(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	fis, err := sh.ReadDir(rel)
	if err != nil {
		if isAuthError(err) {
			p.creds.rejected(p.cfg.Host, p.cfg.Share)
		}
		return nil, err
	}
	entries := make([]os.FileInfo, 0, len(fis))
	for _, fi := range fis {
		if fi.Name() == "." || fi.Name() == ".." {
			continue
		}
		entries = append(entries, fi)
	}
	logging.Debug("smb listing", logging.String("share", p.cfg.Share),
		logging.String("path", rel), logging.Int("entries", len(entries)))

	return provider.NewSliceCursor(len(entries), func(i int) (provider.Row, error) {
		id, err := provider.ChildPathID(parentID, entries[i].Name())
		if err != nil {
			return provider.Row{}, err
		}
		return provider.RowFromFileInfo(id, entries[i]), nil
	}, nil), nil
}

func (p *Provider) DeleteDocument(ctx context.Context, id string) (int, error) {
	rel, err := p.sharePath(id)
	if err != nil {
		return 0, err
	}
	if rel == "" {
		return 0, fmt.Errorf("document %q: cannot delete share root", id)
	}
	sh, release, err := p.mount(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	fi, err := sh.Stat(rel)
	if err != nil {
		return 0, err
	}
	if fi.IsDir() {
		err = sh.RemoveAll(rel)
	} else {
		err = sh.Remove(rel)
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (p *Provider) Close() error { return nil }

// document keeps the session alive until the stream is closed.
type document struct {
	*smb2.File
	release func()
}

func (d *document) Close() error {
	err := d.File.Close()
	d.release()
	return err
}

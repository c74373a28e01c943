package transfer

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/kjk/gdbmdump/dumpfile"
	"github.com/kjk/gdbmdump/log"
	"github.com/melbahja/goph"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type SSHConfig struct {
	User string
	// host or host:port, port defaults to 22
	Host          string
	KeyPath       string
	KeyPassphrase string
	// skip known_hosts check. Only for testing
	InsecureIgnoreHostKey bool
}

// SSH is a connection to the machine that will load dumps
type SSH struct {
	client *goph.Client
	sftp   *sftp.Client
}

func (c *SSHConfig) validate() error {
	if c == nil {
		return errors.New("must provide config")
	}
	if c.User == "" || c.Host == "" || c.KeyPath == "" {
		return errors.New("must provide User, Host and KeyPath in config")
	}
	return nil
}

func splitHostPort(hostPort string) (string, uint, error) {
	host, portStr, ok := strings.Cut(hostPort, ":")
	if !ok {
		return host, 22, nil
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return "", 0, fmt.Errorf("invalid port in '%s'", hostPort)
	}
	return host, uint(port), nil
}

func NewSSH(config *SSHConfig) (*SSH, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	c := config
	host, port, err := splitHostPort(c.Host)
	if err != nil {
		return nil, err
	}
	auth, err := goph.Key(c.KeyPath, c.KeyPassphrase)
	if err != nil {
		return nil, fmt.Errorf("goph.Key('%s') failed: %w", c.KeyPath, err)
	}
	cfg := &goph.Config{
		User:    c.User,
		Addr:    host,
		Port:    port,
		Auth:    auth,
		Timeout: goph.DefaultTimeout,
	}
	if c.InsecureIgnoreHostKey {
		cfg.Callback = ssh.InsecureIgnoreHostKey()
	} else {
		cfg.Callback, err = goph.DefaultKnownHosts()
		if err != nil {
			return nil, err
		}
	}
	client, err := goph.NewConn(cfg)
	if err != nil {
		return nil, fmt.Errorf("ssh connection to '%s' failed: %w", c.Host, err)
	}
	sc, err := client.NewSftp()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("starting sftp on '%s' failed: %w", c.Host, err)
	}
	return &SSH{
		client: client,
		sftp:   sc,
	}, nil
}

// Upload copies a local dump to remotePath. Compressed dumps are
// decompressed on the way because gdbm_load only reads plain text.
func (s *SSH) Upload(localPath, remotePath string) (int64, error) {
	r, err := dumpfile.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	if err = s.sftp.MkdirAll(path.Dir(remotePath)); err != nil {
		return 0, fmt.Errorf("sftp.MkdirAll('%s') failed: %w", path.Dir(remotePath), err)
	}
	f, err := s.sftp.Create(remotePath)
	if err != nil {
		return 0, fmt.Errorf("sftp.Create('%s') failed: %w", remotePath, err)
	}
	timeStart := time.Now()
	n, err := io.Copy(f, r)
	errClose := f.Close()
	if err == nil {
		err = errClose
	}
	if err != nil {
		_ = s.sftp.Remove(remotePath)
		return n, fmt.Errorf("uploading '%s' to '%s' failed: %w", localPath, remotePath, err)
	}
	log.Logf("uploaded '%s' to '%s' (%d bytes) in %s\n", localPath, remotePath, n, time.Since(timeStart))
	return n, nil
}

// LoadOptions are gdbm_load flags
type LoadOptions struct {
	// replace existing keys (-r)
	Replace bool
	// don't restore owner and mode from the dump (-n)
	NoMeta bool
	// user[:group] to own the database (-u)
	Owner string
	// permission bits for the database (-m)
	Mode *int
}

// LoadArgs returns gdbm_load arguments for loading dumpPath into dbPath
func LoadArgs(dumpPath, dbPath string, o *LoadOptions) []string {
	var args []string
	if o != nil {
		if o.Replace {
			args = append(args, "-r")
		}
		if o.NoMeta {
			args = append(args, "-n")
		}
		if o.Owner != "" {
			args = append(args, "-u", o.Owner)
		}
		if o.Mode != nil {
			args = append(args, "-m", strconv.FormatInt(int64(*o.Mode), 8))
		}
	}
	args = append(args, dumpPath)
	if dbPath != "" {
		args = append(args, dbPath)
	}
	return args
}

// shellQuote quotes s for a POSIX shell
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=@%+,", r)
}

// Load runs gdbm_load on the remote machine. Returns its output.
func (s *SSH) Load(dumpPath, dbPath string, o *LoadOptions) ([]byte, error) {
	args := LoadArgs(dumpPath, dbPath, o)
	for i, a := range args {
		args[i] = shellQuote(a)
	}
	cmd, err := s.client.Command("gdbm_load", args...)
	if err != nil {
		return nil, err
	}
	log.Logf("running '%s' on the server\n", cmd.String())
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("'%s' failed: %w\n%s", cmd.String(), err, out)
	}
	log.Event("gdbm-load", "dump", dumpPath, "db", dbPath)
	return out, nil
}

func (s *SSH) Close() error {
	err := s.sftp.Close()
	if err2 := s.client.Close(); err == nil {
		err = err2
	}
	return err
}

package transcripts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"team-insights-go/internal/types"
)

// errNoReference means the document carries nothing a source can look up.
var errNoReference = errors.New("document has no file reference")

// DriveSource downloads transcript text from a drive-style file service:
// GET {baseURL}/files/{file_ref}/content.
type DriveSource struct {
	baseURL      string
	token        string
	client       *http.Client
	maxRetryTime time.Duration
}

func NewDriveSource(baseURL, token string, timeout time.Duration) *DriveSource {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &DriveSource{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		client:       &http.Client{Timeout: timeout},
		maxRetryTime: timeout,
	}
}

func (d *DriveSource) Name() string { return "drive" }

func (d *DriveSource) Fetch(ctx context.Context, t types.Transcript) (string, error) {
	if t.FileRef == "" {
		return "", errNoReference
	}
	endpoint := d.baseURL + "/files/" + url.PathEscape(t.FileRef) + "/content"

	var text string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if d.token != "" {
			req.Header.Set("Authorization", "Bearer "+d.token)
		}
		resp, err := d.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("drive server error %d", resp.StatusCode)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("drive download failed %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}
		text = string(body)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = d.maxRetryTime
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return text, nil
}

// LocalSource looks for the transcript file under a fixed list of
// directories, by file name, file reference or document id.
type LocalSource struct {
	dirs []string
}

func NewLocalSource(dirs ...string) *LocalSource {
	return &LocalSource{dirs: dirs}
}

func (l *LocalSource) Name() string { return "local" }

func (l *LocalSource) Fetch(_ context.Context, t types.Transcript) (string, error) {
	var candidates []string
	for _, n := range []string{t.FileName, t.FileRef} {
		if n != "" {
			candidates = append(candidates, filepath.Base(n))
		}
	}
	candidates = append(candidates, t.ID+".txt", t.ID+".md")

	for _, dir := range l.dirs {
		for _, c := range candidates {
			data, err := os.ReadFile(filepath.Join(dir, c))
			if err == nil {
				return string(data), nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("read %s: %w", c, err)
			}
		}
	}
	return "", fmt.Errorf("no local file for document %s", t.ID)
}

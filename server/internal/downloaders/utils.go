package downloaders

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marcopiovanello/songify/server/internal"
)

const extension = ".mp3"

// Paths hands out destination paths for the jobs of one batch. Two tracks
// whose titles sanitize to the same name get " (2)", " (3)"... appended.
type Paths struct {
	dir string

	mu      sync.Mutex
	claimed map[string]struct{}
}

func NewPaths(dir string) *Paths {
	return &Paths{dir: dir, claimed: make(map[string]struct{})}
}

func (p *Paths) Claim(title string) string {
	base := internal.Sanitize(title)
	if strings.TrimSpace(base) == "" {
		base = "untitled"
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	name := base + extension
	for n := 2; ; n++ {
		key := strings.ToLower(name)
		if _, taken := p.claimed[key]; !taken {
			p.claimed[key] = struct{}{}
			break
		}
		name = fmt.Sprintf("%s (%d)%s", base, n, extension)
	}

	return filepath.Join(p.dir, name)
}

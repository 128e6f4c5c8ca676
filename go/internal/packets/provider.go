package packets

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Provider supplies the ordered question list for a room session.
type Provider interface {
	Questions(ctx context.Context, format models.Format, session string) ([]models.Question, error)
}

// StaticProvider serves fixed question lists, falling back to the defaults.
type StaticProvider map[models.Format][]models.Question

func (p StaticProvider) Questions(_ context.Context, format models.Format, _ string) ([]models.Question, error) {
	if qs := p[format]; len(qs) > 0 {
		out := make([]models.Question, len(qs))
		copy(out, qs)
		return out, nil
	}
	return Defaults(format), nil
}

// DirProvider reads JSON packets from <dir>/<format>/*.json and picks one at
// random per session. Missing, unreadable or empty packets fall back to the
// built-in questions so a session is never empty.
type DirProvider struct {
	dir  string
	pick func(n int) int
}

func NewDirProvider(dir string) *DirProvider {
	return &DirProvider{dir: dir, pick: rand.IntN}
}

func (p *DirProvider) Questions(ctx context.Context, format models.Format, session string) ([]models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := log.With().Str("format", string(format)).Str("session", session).Logger()

	files, err := p.packetFiles(format)
	if err != nil {
		logger.Warn().Err(err).Msg("no packet directory, using default questions")
		return Defaults(format), nil
	}
	if len(files) == 0 {
		logger.Warn().Msg("no packet files, using default questions")
		return Defaults(format), nil
	}

	path := files[p.pick(len(files))]
	qs, err := LoadFile(path, format)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to load packet, using default questions")
		return Defaults(format), nil
	}
	if len(qs) == 0 {
		logger.Warn().Str("path", path).Msg("packet has no usable questions, using default questions")
		return Defaults(format), nil
	}

	logger.Info().Str("path", path).Int("questions", len(qs)).Msg("loaded packet")
	return qs, nil
}

// packetFiles lists JSON files in the format's folder. Folder names match
// case-insensitively so packets/NAQT and packets/naqt both work.
func (p *DirProvider) packetFiles(format models.Format) ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}
	var folder string
	for _, e := range entries {
		if e.IsDir() && strings.EqualFold(e.Name(), string(format)) {
			folder = filepath.Join(p.dir, e.Name())
			break
		}
	}
	if folder == "" {
		return nil, fmt.Errorf("packet folder for %s not found in %s", format, p.dir)
	}

	matches, err := filepath.Glob(filepath.Join(folder, "*.json"))
	if err != nil {
		return nil, err
	}
	return matches, nil
}

type packetFile struct {
	Questions []rawQuestion `json:"questions"`
}

type rawQuestion struct {
	ID       string          `json:"id"`
	Text     string          `json:"text"`
	Answer   string          `json:"answer"`
	Category string          `json:"category"`
	Clues    json.RawMessage `json:"clues"`
}

// LoadFile reads one packet file and normalizes it for the format.
func LoadFile(path string, format models.Format) ([]models.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read packet: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes a packet document. Pyramidal clues may be a list of strings,
// a list of {"text": ...} objects, or one string split on ";;". Questions
// with nothing to show are skipped; unknown categories are dropped.
func Parse(data []byte, format models.Format) ([]models.Question, error) {
	var pkt packetFile
	if err := json.Unmarshal(data, &pkt); err != nil {
		return nil, fmt.Errorf("decode packet: %w", err)
	}

	out := make([]models.Question, 0, len(pkt.Questions))
	for _, rq := range pkt.Questions {
		q := models.Question{
			ID:     rq.ID,
			Answer: strings.TrimSpace(rq.Answer),
		}
		if c, err := models.ParseCategory(rq.Category); err == nil {
			q.Category = c
		}

		if format.Pyramidal() {
			clues, err := parseClues(rq.Clues)
			if err != nil {
				return nil, fmt.Errorf("question %q: %w", rq.ID, err)
			}
			if len(clues) == 0 {
				continue
			}
			q.Kind = models.QuestionKindPyramidal
			q.Clues = clues
			if q.ID == "" {
				q.ID = fmt.Sprintf("q%d", len(out)+1)
			}
		} else {
			q.Kind = models.QuestionKindFlat
			q.Text = strings.TrimSpace(rq.Text)
			if q.Text == "" {
				continue
			}
			if q.ID == "" {
				q.ID = fmt.Sprintf("t%d", len(out)+1)
			}
		}
		out = append(out, q)
	}
	return out, nil
}

func parseClues(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return splitNonEmpty(strings.Split(joined, ";;")), nil
	}

	var plain []string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return splitNonEmpty(plain), nil
	}

	var rich []struct {
		Difficulty string `json:"difficulty"`
		Text       string `json:"text"`
	}
	if err := json.Unmarshal(raw, &rich); err != nil {
		return nil, fmt.Errorf("unsupported clues shape: %w", err)
	}
	texts := make([]string, len(rich))
	for i, c := range rich {
		texts[i] = c.Text
	}
	return splitNonEmpty(texts), nil
}

func splitNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

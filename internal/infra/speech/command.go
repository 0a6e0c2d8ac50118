package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"

	"voicebridge/internal/application"
)

// CommandSynth speaks through a platform command line such as
// "espeak-ng -v {lang} {text}" or "say -v {voice} {text}". Placeholders are
// substituted per argument after parsing, so spoken text never reaches a
// shell. When the template has no {text} placeholder the text is appended as
// the last argument.
type CommandSynth struct {
	args []string
	mu   sync.Mutex
}

func NewCommandSynth(command string) (*CommandSynth, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse speech command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("speech command empty")
	}
	return &CommandSynth{args: args}, nil
}

func (c *CommandSynth) Name() string {
	return "command:" + c.args[0]
}

func (c *CommandSynth) Available() bool {
	_, err := exec.LookPath(c.args[0])
	return err == nil
}

// Args returns the argv that would be executed for u.
func (c *CommandSynth) Args(u application.Utterance) []string {
	replacer := strings.NewReplacer(
		"{text}", u.Text,
		"{voice}", u.Voice,
		"{locale}", u.Locale,
		"{lang}", language(u.Locale),
		"{rate}", strconv.FormatFloat(u.Rate, 'g', -1, 64),
		"{pitch}", strconv.FormatFloat(u.Pitch, 'g', -1, 64),
	)

	out := make([]string, 0, len(c.args)+1)
	hasText := false
	for _, arg := range c.args {
		if strings.Contains(arg, "{text}") {
			hasText = true
		}
		out = append(out, replacer.Replace(arg))
	}
	if !hasText {
		out = append(out, u.Text)
	}
	return out
}

// Synthesize runs one utterance at a time; overlapping calls queue.
func (c *CommandSynth) Synthesize(ctx context.Context, u application.Utterance) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	argv := c.Args(u)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("running %s: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("running %s: %w", argv[0], err)
	}
	return nil
}

func language(locale string) string {
	lang, _, _ := strings.Cut(locale, "-")
	return strings.ToLower(lang)
}

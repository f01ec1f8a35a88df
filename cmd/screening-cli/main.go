package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"talent-scout-go/internal/bootstrap"
	"talent-scout-go/internal/config"
	"talent-scout-go/internal/logger"
	"talent-scout-go/internal/session"
)

func main() {
	var (
		configPath string
		resumePath string
		plain      bool
	)
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.StringVarP(&resumePath, "resume", "r", "", "PDF résumé used to pre-fill contact details")
	pflag.BoolVar(&plain, "plain", false, "Disable colors and markdown rendering")
	pflag.Parse()

	if err := run(configPath, resumePath, plain); err != nil {
		errorColor.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, resumePath string, plain bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// 日志只写文件，避免干扰对话输出
	if cfg.Logger.File == "" {
		cfg.Logger.File = filepath.Join(cfg.Storage.DataDir, "logs", "screening-cli.log")
	}
	logger.InitWithWriter(cfg.Logger, io.Discard)

	stdinFd := int(os.Stdin.Fd())
	interactive := term.IsTerminal(stdinFd)
	if plain || !interactive {
		color.NoColor = true
	}

	if cfg.LLM.APIKey == "" && interactive {
		key, err := promptAPIKey(stdinFd)
		if err != nil {
			return err
		}
		cfg.LLM.APIKey = key
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width = w
	}
	c := &cli{
		app:      a,
		out:      os.Stdout,
		renderer: newRenderer(width, plain || !interactive),
	}
	if err := c.startSession(ctx); err != nil {
		return err
	}
	if resumePath != "" {
		c.prefill(ctx, resumePath)
	}
	return c.loop(ctx, os.Stdin)
}

func promptAPIKey(fd int) (string, error) {
	infoColor.Print("Groq API key (input hidden): ")
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("读取 API key 失败: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

type cli struct {
	app      *bootstrap.App
	out      io.Writer
	renderer *renderer
	current  *session.Orchestrator
}

func (c *cli) startSession(ctx context.Context) error {
	c.current = c.app.NewSession()
	greeting, err := c.current.Start(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, c.renderer.reply(greeting))
	fmt.Fprintln(c.out, statusLine(c.current.Status()))
	return nil
}

func (c *cli) prefill(ctx context.Context, path string) {
	if c.app.Extractor == nil {
		errorColor.Fprintln(c.out, "PDF parsing is unavailable; skipping résumé.")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		errorColor.Fprintf(c.out, "cannot open résumé: %v\n", err)
		return
	}
	defer f.Close()

	text, err := c.app.Extractor.ExtractText(ctx, f, filepath.Base(path))
	if err != nil {
		errorColor.Fprintf(c.out, "cannot read résumé: %v\n", err)
		return
	}
	updated, err := c.current.Prefill(text)
	if err != nil {
		errorColor.Fprintf(c.out, "résumé ignored: %v\n", err)
		return
	}
	infoColor.Fprintf(c.out, "Pre-filled %d field(s) from %s\n", len(updated), filepath.Base(path))
	fmt.Fprintln(c.out, statusLine(c.current.Status()))
}

func (c *cli) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/help":
			fmt.Fprintln(c.out, helpText)
			continue
		case "/status":
			fmt.Fprintln(c.out, statusLine(c.current.Status()))
			continue
		case "/new":
			c.current.Discard(ctx)
			if err := c.startSession(ctx); err != nil {
				return err
			}
			continue
		}

		reply, err := c.current.HandleTurn(ctx, line)
		if errors.Is(err, session.ErrSessionEnded) {
			infoColor.Fprintln(c.out, "This session has ended. Type /new to start again or Ctrl-D to quit.")
			continue
		}
		if err != nil {
			errorColor.Fprintf(c.out, "%v\n", err)
			continue
		}
		fmt.Fprint(c.out, c.renderer.reply(reply))
		fmt.Fprintln(c.out, statusLine(c.current.Status()))

		if ctx.Err() != nil {
			break
		}
	}

	if !c.current.Ended() {
		c.current.Discard(context.Background())
	}
	fmt.Fprintln(c.out)
	return scanner.Err()
}

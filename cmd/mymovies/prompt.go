package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/John-Robertt/mymovies/internal/domain"
)

var (
	// errCancelled 表示用户在某个输入处按了 Ctrl-C：放弃当前操作，回到菜单。
	errCancelled = errors.New("operation cancelled")
	// errQuit 表示输入流结束（Ctrl-D / EOF）：结束整个会话。
	errQuit = errors.New("quit")
)

// lineReader 是 *readline.Instance 中菜单用到的部分，测试里用脚本替换。
type lineReader interface {
	Readline() (string, error)
	SetPrompt(string)
	Close() error
}

func newReadline(in io.ReadCloser, out io.Writer) (lineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		Stdin:           in,
		Stdout:          out,
		InterruptPrompt: "^C",
		EOFPrompt:       "\n",
	})
	if err != nil {
		return nil, err
	}
	return rl, nil
}

// prompter 在 lineReader 之上提供带校验的输入。
type prompter struct {
	rl  lineReader
	out io.Writer
	// warn 渲染校验失败的提示。
	warn func(string) string
}

// ask 读取一行（去首尾空白）。
func (p *prompter) ask(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		return "", errCancelled
	case err != nil:
		return "", errQuit
	}
	return strings.TrimSpace(line), nil
}

// askYear 循环直到输入合法年份。allowBlank=true 时空输入返回 nil。
func (p *prompter) askYear(prompt string, allowBlank bool) (*int, error) {
	for {
		s, err := p.ask(prompt)
		if err != nil {
			return nil, err
		}
		if s == "" && allowBlank {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		switch {
		case err != nil:
			p.say(p.warn("Please enter a valid year."))
		case n < 1 || n > 9999:
			p.say(p.warn("Year must be a positive number."))
		default:
			return domain.Int(n), nil
		}
	}
}

// askRating 循环直到输入 [0, 10] 内的评分。allowBlank=true 时空输入返回 nil。
func (p *prompter) askRating(prompt string, allowBlank bool) (*float64, error) {
	for {
		s, err := p.ask(prompt)
		if err != nil {
			return nil, err
		}
		if s == "" && allowBlank {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		switch {
		case err != nil || math.IsNaN(f):
			p.say(p.warn("Please enter a valid number."))
		case f < domain.MinRating || f > domain.MaxRating:
			p.say(p.warn("Rating must be between 0 and 10."))
		default:
			return domain.Float(f), nil
		}
	}
}

// pause 等待回车；Ctrl-C 在这里等同于回车。
func (p *prompter) pause() error {
	_, err := p.ask("Press Enter to continue...")
	if errors.Is(err, errCancelled) {
		return nil
	}
	return err
}

func (p *prompter) say(lines ...string) {
	for _, l := range lines {
		fmt.Fprintln(p.out, l)
	}
}

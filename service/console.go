package service

import (
	"bufio"
	"context"
	"io"
	"slices"
	"strconv"
	"strings"

	"twitch-chat-viewer/comments"
	"twitch-chat-viewer/render"
)

// RuleSaver ставит изменённые правила на запись.
type RuleSaver interface {
	Enqueue(rs comments.RuleSet) bool
}

const consoleHelp = `commands:
  /tail [n]            last n visible messages
  /user <id>           all messages of a user, ignoring filters
  /active              distinct active viewers
  /mute <id>           /unmute <id>
  /mute-word <word>    /unmute-word <word>
  /mute-users on|off   /mute-words on|off
  /debug on|off        show debug messages
  /emotion on|off      show emotion messages
  /rebuild             rebuild the visible view`

// Console — построчный пульт управления просмотром: чтение вида и правка правил.
type Console struct {
	store     *comments.Store
	printer   *render.Printer
	rebuilder *rebuilder
	saver     RuleSaver
}

func newConsole(store *comments.Store, printer *render.Printer, rb *rebuilder, saver RuleSaver) *Console {
	return &Console{store: store, printer: printer, rebuilder: rb, saver: saver}
}

// Run читает команды из r до EOF или отмены контекста.
func (c *Console) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			c.Exec(line)
		}
	}
}

// Exec выполняет одну команду.
func (c *Console) Exec(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]
	arg := strings.Join(args, " ")

	switch cmd {
	case "/tail":
		n := viewTail
		if len(args) > 0 {
			if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
				n = v
			}
		}
		c.printer.Section("tail", c.store.Tail(n))
	case "/user":
		if arg == "" {
			c.printer.Linef("usage: /user <id>")
			return
		}
		c.printer.Section("messages from "+arg, c.store.MessagesFrom(arg))
	case "/active":
		c.store.ActiveCount(func(active int, ok bool) {
			if !ok {
				c.printer.Linef("active viewers: unavailable, try again")
				return
			}
			c.printer.Linef("active viewers: %d", active)
		})
	case "/rebuild":
		c.rebuilder.Request()
	case "/mute", "/unmute", "/mute-word", "/unmute-word":
		if arg == "" {
			c.printer.Linef("usage: %s <value>", cmd)
			return
		}
		c.update(func(rs *comments.RuleSet) { EditList(rs, cmd, arg) })
	case "/mute-users", "/mute-words", "/debug", "/emotion":
		on, ok := parseSwitch(arg)
		if !ok {
			c.printer.Linef("usage: %s on|off", cmd)
			return
		}
		c.update(func(rs *comments.RuleSet) {
			switch cmd {
			case "/mute-users":
				rs.MuteUserIDsEnabled = on
			case "/mute-words":
				rs.MuteWordsEnabled = on
			case "/debug":
				rs.ShowDebug = on
			case "/emotion":
				rs.SuppressEmotion = !on
			}
		})
	case "/help":
		c.printer.Linef(consoleHelp)
	default:
		c.printer.Linef("unknown command %q, see /help", cmd)
	}
}

func (c *Console) update(fn func(*comments.RuleSet)) {
	rules := c.store.Rules()
	if !rules.Update(fn) {
		c.printer.Linef("rules unchanged")
		return
	}
	if c.saver != nil {
		c.saver.Enqueue(rules.Current())
	}
	c.rebuilder.Request()
}

// EditList добавляет или удаляет значение в списках правил по имени
// команды: /mute, /unmute, /mute-word, /unmute-word. Добавление включает
// соответствующий переключатель.
func EditList(rs *comments.RuleSet, cmd, value string) {
	switch cmd {
	case "/mute":
		if !slices.Contains(rs.MutedUserIDs, value) {
			rs.MutedUserIDs = append(rs.MutedUserIDs, value)
		}
		rs.MuteUserIDsEnabled = true
	case "/unmute":
		rs.MutedUserIDs = slices.DeleteFunc(rs.MutedUserIDs, func(v string) bool { return v == value })
	case "/mute-word":
		if !slices.Contains(rs.MutedWords, value) {
			rs.MutedWords = append(rs.MutedWords, value)
		}
		rs.MuteWordsEnabled = true
	case "/unmute-word":
		rs.MutedWords = slices.DeleteFunc(rs.MutedWords, func(v string) bool { return v == value })
	}
}

func parseSwitch(s string) (on bool, ok bool) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, true
	case "off", "false", "0":
		return false, true
	}
	return false, false
}

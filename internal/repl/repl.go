// Package repl is the thin interactive glue between a terminal and a
// storage.Engine: it parses the fixed command grammar, calls the engine,
// and prints the handful of literal tokens (OK, true, false, (null),
// the ERROR messages) that make up the external contract.
package repl

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/neekrasov/kvstore/internal/model"
	"github.com/neekrasov/kvstore/internal/storage"
)

// errReturn is returned by dispatch when the RETURN command is entered;
// Run treats it as a clean exit rather than an error.
var errReturn = errors.New("return")

// Session reads commands from a terminal and runs them against one
// engine until RETURN or EOF.
type Session struct {
	engine storage.Engine
	rl     *readline.Instance
}

// New builds a Session backed by engine, reading from a readline
// instance configured with prompt and historyFile (historyFile may be
// empty to disable history persistence).
func New(engine storage.Engine, prompt, historyFile string) (*Session, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "RETURN",
	})
	if err != nil {
		return nil, err
	}
	return &Session{engine: engine, rl: rl}, nil
}

// Close releases the underlying readline instance.
func (s *Session) Close() error {
	return s.rl.Close()
}

// Run reads and executes commands until RETURN, EOF or Ctrl-C.
func (s *Session) Run() error {
	for {
		line, err := s.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := s.dispatch(line); err != nil {
			if errors.Is(err, errReturn) {
				return nil
			}
			fmt.Fprintf(s.rl.Stderr(), "%s\n", err)
		}
	}
}

func (s *Session) dispatch(line string) error {
	fields := strings.Fields(line)
	cmd := strings.ToUpper(fields[0])
	args := fields[1:]

	switch cmd {
	case "SET":
		return s.cmdSet(args)
	case "GET":
		return s.cmdGet(args)
	case "EXISTS":
		return s.cmdExists(args)
	case "DEL":
		return s.cmdDel(args)
	case "UPDATE":
		return s.cmdUpdate(args)
	case "KEYS":
		return s.cmdKeys()
	case "RENAME":
		return s.cmdRename(args)
	case "TTL":
		return s.cmdTTL(args)
	case "FIND":
		return s.cmdFind(args)
	case "SHOWALL":
		return s.cmdShowAll()
	case "UPLOAD":
		return s.cmdUpload(args)
	case "EXPORT":
		return s.cmdExport(args)
	case "HELP":
		return s.cmdHelp()
	case "RETURN":
		return errReturn
	default:
		s.println("ERROR: unknown command")
		return nil
	}
}

func (s *Session) println(format string, a ...any) {
	fmt.Fprintf(s.rl.Stdout(), format+"\n", a...)
}

// trailingTTL parses an optional "EX seconds" suffix, returning the
// remaining arguments with it stripped, the ttl (0 if absent), and
// whether it was present at all.
func trailingTTL(args []string) ([]string, int, bool) {
	if len(args) < 2 {
		return args, 0, false
	}
	if !strings.EqualFold(args[len(args)-2], "EX") {
		return args, 0, false
	}
	ttl, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		return args, 0, false
	}
	return args[:len(args)-2], ttl, true
}

func parseValueFields(args []string) (model.Record, model.FieldMask, error) {
	if len(args) != 5 {
		return model.Record{}, 0, fmt.Errorf("expected 5 value fields, got %d", len(args))
	}

	var rec model.Record
	var mask model.FieldMask

	if args[0] != "-" {
		rec.LastName = args[0]
		mask |= model.FieldLastName
	}
	if args[1] != "-" {
		rec.Name = args[1]
		mask |= model.FieldName
	}
	if args[2] != "-" {
		year, err := strconv.Atoi(args[2])
		if err != nil {
			return model.Record{}, 0, fmt.Errorf("invalid year: %s", args[2])
		}
		rec.BirthYear = year
		mask |= model.FieldBirthYear
	}
	if args[3] != "-" {
		rec.City = args[3]
		mask |= model.FieldCity
	}
	if args[4] != "-" {
		coins, err := strconv.Atoi(args[4])
		if err != nil {
			return model.Record{}, 0, fmt.Errorf("invalid coins: %s", args[4])
		}
		rec.Coins = coins
		mask |= model.FieldCoins
	}

	return rec, mask, nil
}

func (s *Session) cmdSet(args []string) error {
	if len(args) < 6 {
		s.println("ERROR: SET needs key lastname name year city coins [EX seconds]")
		return nil
	}

	key := args[0]
	rest, ttl, _ := trailingTTL(args[1:])
	if len(rest) != 5 {
		s.println("ERROR: SET needs key lastname name year city coins [EX seconds]")
		return nil
	}

	year, err := strconv.Atoi(rest[2])
	if err != nil {
		s.println("ERROR: invalid year")
		return nil
	}
	coins, err := strconv.Atoi(rest[4])
	if err != nil {
		s.println("ERROR: invalid coins")
		return nil
	}

	rec := model.Record{
		LastName:  rest[0],
		Name:      rest[1],
		BirthYear: year,
		City:      rest[3],
		Coins:     coins,
	}

	switch s.engine.Set(key, rec, ttl) {
	case model.Ok:
		s.println("OK")
	case model.KeyAlreadyExists:
		s.println("ERROR: key already exists")
	default:
		s.println("ERROR")
	}
	return nil
}

func (s *Session) cmdGet(args []string) error {
	if len(args) != 1 {
		s.println("ERROR: GET needs key")
		return nil
	}

	rec, ok := s.engine.Get(args[0])
	if !ok {
		s.println("(null)")
		return nil
	}
	s.println("%s %s %d %s %d", rec.LastName, rec.Name, rec.BirthYear, rec.City, rec.Coins)
	return nil
}

func (s *Session) cmdExists(args []string) error {
	if len(args) != 1 {
		s.println("ERROR: EXISTS needs key")
		return nil
	}
	s.println("%t", s.engine.Exists(args[0]))
	return nil
}

func (s *Session) cmdDel(args []string) error {
	if len(args) != 1 {
		s.println("ERROR: DEL needs key")
		return nil
	}
	s.println("%t", s.engine.Del(args[0]) == model.Ok)
	return nil
}

func (s *Session) cmdUpdate(args []string) error {
	if len(args) < 6 {
		s.println("ERROR: UPDATE needs key lastname name year city coins [EX seconds]")
		return nil
	}

	key := args[0]
	rest, ttl, hasTTL := trailingTTL(args[1:])
	rec, mask, err := parseValueFields(rest)
	if err != nil {
		s.println("ERROR: %s", err)
		return nil
	}
	if hasTTL {
		mask |= model.FieldTTL
	}

	if s.engine.Update(key, rec, ttl, mask) == model.Ok {
		s.println("OK")
	} else {
		s.println("ERROR")
	}
	return nil
}

func (s *Session) cmdKeys() error {
	keys := s.engine.Keys()
	s.printNumberedOrNull(toAnySlice(keys))
	return nil
}

func (s *Session) cmdRename(args []string) error {
	if len(args) != 2 {
		s.println("ERROR: RENAME needs old new")
		return nil
	}
	s.println("%t", s.engine.Rename(args[0], args[1]) == model.Ok)
	return nil
}

func (s *Session) cmdTTL(args []string) error {
	if len(args) != 1 {
		s.println("ERROR: TTL needs key")
		return nil
	}
	s.println("%d", s.engine.TTL(args[0]))
	return nil
}

func (s *Session) cmdFind(args []string) error {
	rest, ttl, hasTTL := trailingTTL(args)
	rec, mask, err := parseValueFields(rest)
	if err != nil {
		s.println("ERROR: %s", err)
		return nil
	}
	if hasTTL {
		mask |= model.FieldTTL
	}

	keys := s.engine.Find(rec, ttl, mask)
	s.printNumberedOrNull(toAnySlice(keys))
	return nil
}

func (s *Session) cmdShowAll() error {
	records := s.engine.ShowAll()
	if len(records) == 0 {
		s.println("(null)")
		return nil
	}
	for i, rec := range records {
		s.println("%d) %s %s %d %s %d", i+1, rec.LastName, rec.Name, rec.BirthYear, rec.City, rec.Coins)
	}
	return nil
}

func (s *Session) cmdUpload(args []string) error {
	if len(args) != 1 {
		s.println("ERROR: UPLOAD needs a path")
		return nil
	}
	n, errKind := s.engine.Import(args[0])
	if errKind != model.Ok {
		s.println("%d", errKind.Int())
		return nil
	}
	s.println("%d", n)
	return nil
}

func (s *Session) cmdExport(args []string) error {
	if len(args) != 1 {
		s.println("ERROR: EXPORT needs a path")
		return nil
	}
	n, errKind := s.engine.Export(args[0])
	if errKind != model.Ok {
		s.println("%d", errKind.Int())
		return nil
	}
	s.println("%d", n)
	return nil
}

func (s *Session) cmdHelp() error {
	s.println("commands: SET GET EXISTS DEL UPDATE KEYS RENAME TTL FIND SHOWALL UPLOAD EXPORT HELP RETURN")
	return nil
}

func (s *Session) printNumberedOrNull(items []any) {
	if len(items) == 0 {
		s.println("(null)")
		return
	}
	for i, item := range items {
		s.println("%d) %v", i+1, item)
	}
}

func toAnySlice[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

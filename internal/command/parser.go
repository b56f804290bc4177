package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"vadimgribanov.com/tg-remind/internal/models"
)

// ParseError names the offending token and its byte position in the raw text.
// It is always recoverable; handlers surface it to the user verbatim.
type ParseError struct {
	Pos    int
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%s at position %d", e.Reason, e.Pos)
	}
	return fmt.Sprintf("%s %q at position %d", e.Reason, e.Token, e.Pos)
}

var weekdays = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

var delayUnits = map[byte]int64{
	'w': 7 * 24 * 60 * 60 * 1000,
	'd': 24 * 60 * 60 * 1000,
	'h': 60 * 60 * 1000,
	'm': 60 * 1000,
	's': 1000,
}

// Parse turns raw chat text into a Command. Time expressions are evaluated
// against now in the caller's resolved location, so the returned trigger
// times are already zoned.
func Parse(text string, loc *time.Location, now time.Time) (Command, error) {
	p := &parser{input: text}
	if !p.consume('$') {
		return nil, &ParseError{Pos: 0, Reason: "expected command prefix '$'"}
	}

	keywordStart := p.pos
	keyword := p.takeWhile(isLetter)
	switch keyword {
	case "r", "remindme", "reminder":
		return p.scheduleReminder(now.In(loc))
	case "cr", "cancelreminder":
		id, err := p.idArgument()
		if err != nil {
			return nil, err
		}
		return CancelReminder{ID: id}, nil
	case "si", "setinterval":
		return p.setInterval()
	case "ci", "clearinterval":
		id, err := p.idArgument()
		if err != nil {
			return nil, err
		}
		return ClearInterval{ID: id}, nil
	case "rs", "reminders":
		if err := p.expectEnd(); err != nil {
			return nil, err
		}
		return ListReminders{}, nil
	case "tz", "timezone":
		if err := p.expectSpace(); err != nil {
			return nil, err
		}
		name := p.rest()
		if name == "" {
			return nil, p.errorHere("expected timezone name")
		}
		return SetTimezone{Name: name}, nil
	case "tf", "timeformat":
		if err := p.expectSpace(); err != nil {
			return nil, err
		}
		switch arg := p.rest(); arg {
		case "12h":
			return SetTimeFormat{Format: models.TimeFormat12h}, nil
		case "24h":
			return SetTimeFormat{Format: models.TimeFormat24h}, nil
		default:
			return nil, &ParseError{Pos: p.pos, Token: arg, Reason: "expected time format 12h or 24h, got"}
		}
	case "h", "help":
		if err := p.expectEnd(); err != nil {
			return nil, err
		}
		return Help{}, nil
	default:
		return nil, &ParseError{Pos: keywordStart, Token: keyword, Reason: "unknown command"}
	}
}

func (p *parser) scheduleReminder(now time.Time) (Command, error) {
	if err := p.expectSpace(); err != nil {
		return nil, err
	}
	modifiers, err := p.timeExpr(true)
	if err != nil {
		return nil, err
	}
	if !p.consume(';') {
		return nil, p.errorHere("expected ';' after time expression")
	}
	p.consume(' ')
	message := p.rest()
	if message == "" {
		return nil, p.errorHere("expected reminder message")
	}

	sequences := Expand(modifiers)
	times := make([]time.Time, 0, len(sequences))
	for _, seq := range sequences {
		t, err := models.ApplyAll(seq, now)
		if err != nil {
			return nil, fmt.Errorf("computing reminder time: %w", err)
		}
		times = append(times, t)
	}
	return ScheduleReminder{Times: times, Message: message}, nil
}

func (p *parser) setInterval() (Command, error) {
	if err := p.expectSpace(); err != nil {
		return nil, err
	}
	id, err := p.number()
	if err != nil {
		return nil, err
	}
	if err := p.expectSpace(); err != nil {
		return nil, err
	}
	modifiers, err := p.timeExpr(false)
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	sequence := make([]models.TimeModifier, 0, len(modifiers))
	for _, m := range modifiers {
		sequence = append(sequence, *m.Single)
	}
	return SetInterval{ID: id, Modifiers: sequence}, nil
}

// timeExpr parses single-space-separated modifiers up to ';' or end of input.
// Branch (permutation) modifiers are rejected when allowBranch is false, as
// in interval expressions.
func (p *parser) timeExpr(allowBranch bool) ([]Modifier, error) {
	var modifiers []Modifier
	for {
		if p.peek() == '(' {
			if !allowBranch {
				return nil, &ParseError{Pos: p.pos, Token: "(", Reason: "permutations are not allowed here, found"}
			}
			branch, err := p.branch()
			if err != nil {
				return nil, err
			}
			modifiers = append(modifiers, Modifier{Branch: branch})
		} else {
			start := p.pos
			token := p.takeWhile(func(c byte) bool { return c != ' ' && c != ';' })
			single, err := parsePlainModifier(token, start)
			if err != nil {
				return nil, err
			}
			modifiers = append(modifiers, Modifier{Single: &single})
		}
		if !p.consume(' ') {
			return modifiers, nil
		}
	}
}

// branch parses a parenthesized, comma-separated list of plain modifiers.
func (p *parser) branch() ([]models.TimeModifier, error) {
	p.pos++ // opening '('
	var alternatives []models.TimeModifier
	for {
		p.skipSpaces()
		start := p.pos
		token := p.takeWhile(func(c byte) bool { return c != ',' && c != ')' && c != ' ' })
		alt, err := parsePlainModifier(token, start)
		if err != nil {
			return nil, err
		}
		alternatives = append(alternatives, alt)
		p.skipSpaces()
		switch {
		case p.consume(','):
		case p.consume(')'):
			return alternatives, nil
		default:
			return nil, p.errorHere("expected ',' or ')' in permutation")
		}
	}
}

// parsePlainModifier parses one space-free token into a TimeModifier.
func parsePlainModifier(token string, pos int) (models.TimeModifier, error) {
	fail := func(reason string) (models.TimeModifier, error) {
		return models.TimeModifier{}, &ParseError{Pos: pos, Token: token, Reason: reason}
	}
	if token == "" {
		return fail("expected time modifier")
	}
	if isLetter(token[0]) {
		// Weekday names accept only the lowercase and leading-capital
		// spellings.
		name := strings.ToLower(token[:1]) + token[1:]
		ordinal, ok := weekdays[name]
		if !ok {
			return fail("invalid weekday")
		}
		return models.TimeModifier{Kind: models.ModifierWeekday, Weekday: ordinal}, nil
	}
	if strings.Contains(token, "-") {
		return parseDateModifier(token, pos)
	}

	i := 0
	for i < len(token) && isDigit(token[i]) {
		i++
	}
	if i == 0 {
		return fail("invalid time modifier")
	}
	num, err := strconv.ParseInt(token[:i], 10, 64)
	if err != nil {
		return fail("invalid number")
	}
	rest := token[i:]
	switch {
	case rest == "mo":
		return models.TimeModifier{Kind: models.ModifierMonths, Months: int(num)}, nil
	case rest == "" || rest == "am" || rest == "pm" || rest[0] == ':':
		return parseClockModifier(num, rest, token, pos)
	default:
		return parseDelayModifier(token, pos)
	}
}

// parseClockModifier handles <hour>[":"<minute>]["am"|"pm"]. With a suffix,
// the hour is taken mod 12 plus 12 for pm; bare hours use the 24-hour clock.
func parseClockModifier(hour int64, rest string, token string, pos int) (models.TimeModifier, error) {
	fail := func(reason string) (models.TimeModifier, error) {
		return models.TimeModifier{}, &ParseError{Pos: pos, Token: token, Reason: reason}
	}
	minute := int64(0)
	if rest != "" && rest[0] == ':' {
		rest = rest[1:]
		i := 0
		for i < len(rest) && isDigit(rest[i]) {
			i++
		}
		if i == 0 {
			return fail("expected minutes in")
		}
		var err error
		minute, err = strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return fail("invalid number in")
		}
		rest = rest[i:]
	}
	if minute > 59 {
		return fail("invalid minutes in")
	}
	switch rest {
	case "am":
		hour = hour % 12
	case "pm":
		hour = hour%12 + 12
	case "":
		hour = hour % 24
	default:
		return fail("invalid time of day")
	}
	return models.TimeModifier{Kind: models.ModifierTimeOfDay, Hour: int(hour), Minute: int(minute)}, nil
}

// parseDelayModifier sums a run of <number><unit> duration components into
// one Delay.
func parseDelayModifier(token string, pos int) (models.TimeModifier, error) {
	var totalMs int64
	i := 0
	for i < len(token) {
		start := i
		for i < len(token) && isDigit(token[i]) {
			i++
		}
		if start == i {
			return models.TimeModifier{}, &ParseError{Pos: pos, Token: token, Reason: "invalid duration"}
		}
		num, err := strconv.ParseInt(token[start:i], 10, 64)
		if err != nil {
			return models.TimeModifier{}, &ParseError{Pos: pos, Token: token, Reason: "invalid number in"}
		}
		if i >= len(token) {
			return models.TimeModifier{}, &ParseError{Pos: pos, Token: token, Reason: "missing duration unit in"}
		}
		multiplier, ok := delayUnits[token[i]]
		if !ok {
			return models.TimeModifier{}, &ParseError{Pos: pos, Token: token, Reason: "invalid duration unit in"}
		}
		i++
		totalMs += num * multiplier
	}
	return models.TimeModifier{Kind: models.ModifierDelay, DelayMs: totalMs}, nil
}

// parseDateModifier handles [<year>]"-"[<month>]"-"<day>; omitted year or
// month fields inherit from the base timestamp at application time.
func parseDateModifier(token string, pos int) (models.TimeModifier, error) {
	fail := func(reason string) (models.TimeModifier, error) {
		return models.TimeModifier{}, &ParseError{Pos: pos, Token: token, Reason: reason}
	}
	parts := strings.Split(token, "-")
	if len(parts) != 3 {
		return fail("invalid date")
	}
	year, err := optionalNumber(parts[0])
	if err != nil {
		return fail("invalid year in")
	}
	month, err := optionalNumber(parts[1])
	if err != nil || (parts[1] != "" && (month < 1 || month > 12)) {
		return fail("invalid month in")
	}
	day, err := optionalNumber(parts[2])
	if err != nil || parts[2] == "" || day < 1 || day > 31 {
		return fail("invalid day in")
	}
	return models.TimeModifier{Kind: models.ModifierDate, Year: year, Month: month, Day: day}, nil
}

func optionalNumber(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, fmt.Errorf("not a number: %q", s)
		}
	}
	return strconv.Atoi(s)
}

type parser struct {
	input string
	pos   int
}

func (p *parser) peek() byte {
	if p.pos < len(p.input) {
		return p.input[p.pos]
	}
	return 0
}

func (p *parser) consume(c byte) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) takeWhile(pred func(byte) bool) string {
	start := p.pos
	for p.pos < len(p.input) && pred(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *parser) skipSpaces() {
	for p.consume(' ') {
	}
}

func (p *parser) rest() string {
	s := p.input[p.pos:]
	p.pos = len(p.input)
	return s
}

func (p *parser) number() (int, error) {
	start := p.pos
	digits := p.takeWhile(isDigit)
	if digits == "" {
		return 0, &ParseError{Pos: start, Reason: "expected a number"}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, &ParseError{Pos: start, Token: digits, Reason: "invalid number"}
	}
	return n, nil
}

func (p *parser) expectSpace() error {
	if !p.consume(' ') {
		return p.errorHere("expected ' '")
	}
	return nil
}

func (p *parser) expectEnd() error {
	if p.pos != len(p.input) {
		return p.errorHere("unexpected trailing input")
	}
	return nil
}

func (p *parser) errorHere(reason string) *ParseError {
	token := p.input[p.pos:]
	if i := strings.IndexByte(token, ' '); i >= 0 {
		token = token[:i]
	}
	return &ParseError{Pos: p.pos, Token: token, Reason: reason}
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// idArgument parses a lone " <id>" argument list.
func (p *parser) idArgument() (int, error) {
	if err := p.expectSpace(); err != nil {
		return 0, err
	}
	id, err := p.number()
	if err != nil {
		return 0, err
	}
	if err := p.expectEnd(); err != nil {
		return 0, err
	}
	return id, nil
}

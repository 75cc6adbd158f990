package handlers

import (
	"database/sql"
	"math/rand"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pborman/uuid"

	"github.com/provnuk88/Web3bot/internal/db"
)

const (
	captchaCallbackPrefix = "captcha"
	captchaOperandMax     = 10
	captchaButtonsPerRow  = 4
)

// Decoy answer candidates; the true sum replaces a colliding decoy so that
// exactly one button carries the correct value.
var captchaDecoys = []int{1, 5, 7, 9, 12, 15, 21, 4, 6, 8}

// challenge is one issued arithmetic puzzle. Token binds the rendered
// keyboard to this issuance: answers from a superseded keyboard are stale.
type challenge struct {
	First   int
	Second  int
	Answer  int
	Token   string
	Options []int
}

func newChallenge() challenge {
	first := rand.Intn(captchaOperandMax) + 1
	second := rand.Intn(captchaOperandMax) + 1
	answer := first + second

	options := make([]int, 0, 8)
	for _, decoy := range captchaDecoys {
		if decoy == answer {
			continue
		}
		options = append(options, decoy)
		if len(options) == 7 {
			break
		}
	}
	options = append(options, answer)
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return challenge{
		First:   first,
		Second:  second,
		Answer:  answer,
		Token:   uuid.New(),
		Options: options,
	}
}

func (c challenge) keyboard(userID int64) api.InlineKeyboardMarkup {
	buttons := make([]api.InlineKeyboardButton, 0, len(c.Options))
	for _, option := range c.Options {
		data := strings.Join([]string{
			captchaCallbackPrefix,
			strconv.FormatInt(userID, 10),
			c.Token,
			strconv.Itoa(option),
		}, ";")
		buttons = append(buttons, api.NewInlineKeyboardButtonData(strconv.Itoa(option), data))
	}

	rows := make([][]api.InlineKeyboardButton, 0, 2)
	for len(buttons) > 0 {
		size := captchaButtonsPerRow
		if len(buttons) < size {
			size = len(buttons)
		}
		rows = append(rows, buttons[:size])
		buttons = buttons[size:]
	}
	return api.NewInlineKeyboardMarkup(rows...)
}

type captchaCallbackData struct {
	UserID int64
	Token  string
	Answer int
}

func parseCaptchaCallbackData(data string) (captchaCallbackData, bool) {
	parts := strings.Split(data, ";")
	if len(parts) != 4 || parts[0] != captchaCallbackPrefix {
		return captchaCallbackData{}, false
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || parts[2] == "" {
		return captchaCallbackData{}, false
	}
	answer, err := strconv.Atoi(parts[3])
	if err != nil {
		return captchaCallbackData{}, false
	}
	return captchaCallbackData{UserID: userID, Token: parts[2], Answer: answer}, true
}

type challengeOutcome int

const (
	challengeForeign challengeOutcome = iota
	challengeAlreadyVerified
	challengeStale
	challengeIncorrect
	challengeSolved
)

// evaluateChallengeAnswer decides what a callback press means for the
// challenged member. Only the challenged identity may answer; a verified
// member gets a no-op success; mismatched answers leave state untouched
// (unlimited retries).
func evaluateChallengeAnswer(member *db.Member, answererID int64, data captchaCallbackData) challengeOutcome {
	if answererID != data.UserID || member.UserID != data.UserID {
		return challengeForeign
	}
	if member.IsVerified() {
		return challengeAlreadyVerified
	}
	if member.CaptchaToken == "" || member.CaptchaToken != data.Token || !member.CaptchaAnswer.Valid {
		return challengeStale
	}
	if int64(data.Answer) != member.CaptchaAnswer.Int64 {
		return challengeIncorrect
	}
	return challengeSolved
}

func toNullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func nullInt64() sql.NullInt64 {
	return sql.NullInt64{}
}

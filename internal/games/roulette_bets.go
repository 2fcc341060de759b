package games

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// BetType names a standard roulette wager.
type BetType string

const (
	BetStraight BetType = "straight"
	BetSplit    BetType = "split"
	BetStreet   BetType = "street"
	BetCorner   BetType = "corner"
	BetSixLine  BetType = "six_line"
	BetDozen    BetType = "dozen"
	BetColumn   BetType = "column"
	BetRed      BetType = "red"
	BetBlack    BetType = "black"
	BetEven     BetType = "even"
	BetOdd      BetType = "odd"
	BetLow      BetType = "low"
	BetHigh     BetType = "high"
)

// rouletteOdds is the payout ratio (x:1) per bet type.
var rouletteOdds = map[BetType]int{
	BetStraight: 35,
	BetSplit:    17,
	BetStreet:   11,
	BetCorner:   8,
	BetSixLine:  5,
	BetDozen:    2,
	BetColumn:   2,
	BetRed:      1,
	BetBlack:    1,
	BetEven:     1,
	BetOdd:      1,
	BetLow:      1,
	BetHigh:     1,
}

var betTypeAliases = map[string]BetType{
	"sixline":  BetSixLine,
	"six-line": BetSixLine,
	"line":     BetSixLine,
	"single":   BetStraight,
	"trio":     BetStreet,
}

// BetTypes lists supported bet types from inside to outside bets.
func BetTypes() []BetType {
	return []BetType{
		BetStraight, BetSplit, BetStreet, BetCorner, BetSixLine,
		BetDozen, BetColumn,
		BetRed, BetBlack, BetEven, BetOdd, BetLow, BetHigh,
	}
}

// ParseBetType normalizes a bet type name.
func ParseBetType(s string) (BetType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := betTypeAliases[name]; ok {
		return alias, nil
	}
	bt := BetType(name)
	if _, ok := rouletteOdds[bt]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBetType, s)
	}
	return bt, nil
}

// PayoutTable returns a copy of the odds table.
func PayoutTable() map[BetType]int {
	out := make(map[BetType]int, len(rouletteOdds))
	for k, v := range rouletteOdds {
		out[k] = v
	}
	return out
}

// BetHouseEdge returns 1 - (odds+1) * covered/37 for a bet type.
func BetHouseEdge(bt BetType) float64 {
	odds, ok := rouletteOdds[bt]
	if !ok {
		return 0
	}
	return 1 - float64(odds+1)*float64(betCoverage(bt))/rouletteNumbers
}

func betCoverage(bt BetType) int {
	switch bt {
	case BetStraight:
		return 1
	case BetSplit:
		return 2
	case BetStreet:
		return 3
	case BetCorner:
		return 4
	case BetSixLine:
		return 6
	case BetDozen, BetColumn:
		return 12
	default:
		return 18
	}
}

// Payout is the settlement of one bet.
type Payout struct {
	BetType    BetType         `json:"betType"`
	Numbers    []int           `json:"numbers,omitempty"`
	Result     int             `json:"result"`
	Won        bool            `json:"won"`
	Odds       int             `json:"odds"`
	Amount     decimal.Decimal `json:"amount"`
	Payout     decimal.Decimal `json:"payout"`
	Profit     decimal.Decimal `json:"profit"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// CalculatePayout settles a bet of amount on betValue against resultNumber.
// betValue holds the covered numbers for inside bets, the 1-3 index for
// dozen and column bets, and is ignored for even-money bets. A winning bet
// returns the stake plus odds x stake.
func CalculatePayout(betType BetType, betValue []int, resultNumber int, amount decimal.Decimal) (Payout, error) {
	odds, ok := rouletteOdds[betType]
	if !ok {
		return Payout{}, fmt.Errorf("%w: %q", ErrUnsupportedBetType, betType)
	}
	if _, err := RouletteColor(resultNumber); err != nil {
		return Payout{}, err
	}
	if !amount.IsPositive() {
		return Payout{}, fmt.Errorf("%w: bet amount must be positive, got %s", ErrInvalidBet, amount)
	}

	won, err := betWins(betType, betValue, resultNumber)
	if err != nil {
		return Payout{}, err
	}

	p := Payout{
		BetType:    betType,
		Numbers:    slices.Clone(betValue),
		Result:     resultNumber,
		Won:        won,
		Odds:       odds,
		Amount:     amount,
		Payout:     decimal.Zero,
		Profit:     amount.Neg(),
		Multiplier: decimal.Zero,
	}
	if won {
		multiplier := decimal.NewFromInt(int64(odds + 1))
		p.Multiplier = multiplier
		p.Payout = amount.Mul(multiplier)
		p.Profit = amount.Mul(decimal.NewFromInt(int64(odds)))
	}
	return p, nil
}

func betWins(bt BetType, value []int, n int) (bool, error) {
	switch bt {
	case BetStraight, BetSplit, BetStreet, BetCorner, BetSixLine:
		covered, err := insideBetNumbers(bt, value)
		if err != nil {
			return false, err
		}
		return slices.Contains(covered, n), nil

	case BetDozen, BetColumn:
		if len(value) != 1 || value[0] < 1 || value[0] > 3 {
			return false, fmt.Errorf("%w: %s bet needs a single index 1-3, got %v", ErrInvalidBet, bt, value)
		}
		if n == 0 {
			return false, nil
		}
		if bt == BetDozen {
			return (n-1)/12+1 == value[0], nil
		}
		return (n-1)%3+1 == value[0], nil

	case BetRed, BetBlack, BetEven, BetOdd, BetLow, BetHigh:
		if n == 0 {
			return false, nil
		}
		switch bt {
		case BetRed:
			return rouletteRed[n], nil
		case BetBlack:
			return !rouletteRed[n], nil
		case BetEven:
			return n%2 == 0, nil
		case BetOdd:
			return n%2 == 1, nil
		case BetLow:
			return n <= 18, nil
		default:
			return n >= 19, nil
		}
	}

	return false, fmt.Errorf("%w: %q", ErrUnsupportedBetType, bt)
}

// insideBetNumbers validates the table geometry of an inside bet and returns
// the sorted covered numbers. Rows on the layout are {1,2,3}, {4,5,6}, ...
func insideBetNumbers(bt BetType, value []int) ([]int, error) {
	nums := slices.Clone(value)
	slices.Sort(nums)

	want := betCoverage(bt)
	if len(nums) != want {
		return nil, fmt.Errorf("%w: %s bet covers %d numbers, got %v", ErrInvalidBet, bt, want, value)
	}
	for i, n := range nums {
		if n < 0 || n >= rouletteNumbers {
			return nil, fmt.Errorf("%w: %s bet number %d out of range", ErrInvalidBet, bt, n)
		}
		if i > 0 && nums[i-1] == n {
			return nil, fmt.Errorf("%w: %s bet repeats number %d", ErrInvalidBet, bt, n)
		}
	}

	valid := false
	switch bt {
	case BetStraight:
		valid = true
	case BetSplit:
		a, b := nums[0], nums[1]
		switch {
		case a == 0:
			valid = b <= 3
		case b-a == 3:
			valid = true
		case b-a == 1:
			valid = (a-1)/3 == (b-1)/3
		}
	case BetStreet:
		a := nums[0]
		if a == 0 {
			valid = slices.Equal(nums, []int{0, 1, 2}) || slices.Equal(nums, []int{0, 2, 3})
		} else {
			valid = a%3 == 1 && nums[1] == a+1 && nums[2] == a+2
		}
	case BetCorner:
		a := nums[0]
		valid = a >= 1 && a%3 != 0 && slices.Equal(nums, []int{a, a + 1, a + 3, a + 4})
	case BetSixLine:
		a := nums[0]
		valid = a%3 == 1 && nums[5] == a+5
		for i := 1; valid && i < len(nums); i++ {
			valid = nums[i] == nums[i-1]+1
		}
	}

	if !valid {
		return nil, fmt.Errorf("%w: %v is not a valid %s", ErrInvalidBet, value, bt)
	}
	return nums, nil
}

/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

package tournament

import (
	"fmt"
	"strconv"
	"strings"
)

// Result is the outcome recorded in one round cell.
type Result int

const (
	ResultWin Result = iota
	ResultLoss
	ResultDraw
	ResultHalfBye
	ResultFullBye
	ResultUnpaired
	ResultUnknown
)

func (r Result) String() string {
	switch r {
	case ResultWin:
		return "win"
	case ResultLoss:
		return "loss"
	case ResultDraw:
		return "draw"
	case ResultHalfBye:
		return "half-point bye"
	case ResultFullBye:
		return "bye"
	case ResultUnpaired:
		return "unpaired"
	default:
		return "unknown"
	}
}

// IsGame reports whether the result names an opponent.
func (r Result) IsGame() bool {
	return r == ResultWin || r == ResultLoss || r == ResultDraw ||
		r == ResultUnknown
}

const (
	codeHalfBye  = "-H-"
	codeFullBye  = "-B-"
	codeUnpaired = "-U-"
)

// RoundResult is a parsed round cell such as "W12", "D3" or "-B-".
type RoundResult struct {
	Outcome  Result
	Letter   byte
	Opponent RowIndex
	Code     string
}

// ParseResult parses a round cell. Bye and unpaired sentinels carry no
// opponent. A well-formed code whose letter is not W, L or D parses as
// ResultUnknown so that the caller can decide whether to reject it; a code
// without a numeric opponent returns ErrMalformedResult.
func ParseResult(code string) (RoundResult, error) {
	code = strings.TrimSpace(code)
	switch code {
	case codeHalfBye:
		return RoundResult{Outcome: ResultHalfBye, Code: code}, nil
	case codeFullBye:
		return RoundResult{Outcome: ResultFullBye, Code: code}, nil
	case codeUnpaired, "":
		return RoundResult{Outcome: ResultUnpaired, Code: code}, nil
	}

	if len(code) < 2 {
		return RoundResult{}, fmt.Errorf("%w: %q", ErrMalformedResult, code)
	}
	opp, err := strconv.Atoi(code[1:])
	if err != nil {
		return RoundResult{}, fmt.Errorf("%w: %q: %v", ErrMalformedResult, code,
			err)
	}

	ret := RoundResult{
		Letter:   code[0],
		Opponent: RowIndex(opp),
		Code:     code,
	}
	switch ret.Letter {
	case 'W':
		ret.Outcome = ResultWin
	case 'L':
		ret.Outcome = ResultLoss
	case 'D':
		ret.Outcome = ResultDraw
	default:
		ret.Outcome = ResultUnknown
	}

	return ret, nil
}

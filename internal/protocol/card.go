package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// CardName 牌名
type CardName uint8

const (
	// 棕色牌
	Bang CardName = iota + 1
	Hatchet
	Indians
	Missed
	Duel
	GeneralStore
	Beer
	// 蓝色牌
	Barrel
	Dynamite
	// 绿色牌
	PonyExpress
)

var cardNames = map[CardName]string{
	Bang:         "Bang",
	Hatchet:      "Hatchet",
	Indians:      "Indians",
	Missed:       "Missed",
	Duel:         "Duel",
	GeneralStore: "GeneralStore",
	Beer:         "Beer",
	Barrel:       "Barrel",
	Dynamite:     "Dynamite",
	PonyExpress:  "PonyExpress",
}

func (n CardName) String() string {
	if name, ok := cardNames[n]; ok {
		return name
	}
	return "Card(" + strconv.Itoa(int(n)) + ")"
}

// ParseCardName 按名字（忽略大小写）查找牌名
func ParseCardName(s string) (CardName, error) {
	for n, name := range cardNames {
		if strings.EqualFold(name, s) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("unknown card name: %q", s)
}

// CardSuit 花色
type CardSuit uint8

const (
	Clubs CardSuit = iota + 1
	Diamonds
	Hearts
	Spades
)

// suitSymbols 花色符号映射表
var suitSymbols = map[CardSuit]string{
	Clubs:    "♣",
	Diamonds: "♦",
	Hearts:   "♥",
	Spades:   "♠",
}

func (s CardSuit) String() string {
	if symbol, ok := suitSymbols[s]; ok {
		return symbol
	}
	return "?"
}

// CardRank 点数
type CardRank uint8

const (
	N1 CardRank = iota + 1
	N2
	N3
	N4
	N5
	N6
	N7
	N8
	N9
	N10
	J
	Q
	K
	A
)

// rankNames 牌面值字符串映射表
var rankNames = map[CardRank]string{
	J: "J",
	Q: "Q",
	K: "K",
	A: "A",
}

func (r CardRank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return strconv.Itoa(int(r))
}

// Card 一张牌，发出后不可变
type Card struct {
	Name CardName `json:"name"`
	Suit CardSuit `json:"suit"`
	Rank CardRank `json:"rank"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s %s%s", c.Name, c.Rank, c.Suit)
}

// Character 角色
type Character uint8

const (
	BillyTheKid Character = iota + 1
)

func (c Character) String() string {
	if c == BillyTheKid {
		return "BillyTheKid"
	}
	return "Character(" + strconv.Itoa(int(c)) + ")"
}

// Role 身份
type Role uint8

const (
	Sheriff Role = iota + 1
	Renegade
	Outlaw
	Deputy
)

var roleNames = map[Role]string{
	Sheriff:  "Sheriff",
	Renegade: "Renegade",
	Outlaw:   "Outlaw",
	Deputy:   "Deputy",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Role(" + strconv.Itoa(int(r)) + ")"
}

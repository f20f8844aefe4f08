package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ndbaker1/BONK/internal/protocol"
)

// --- 命令解析 ---

// command 输入框中的一条命令：动词加参数
type command struct {
	verb string
	args []string
}

// parseCommand 拆分输入，动词统一小写
func parseCommand(input string) command {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return command{}
	}
	return command{verb: strings.ToLower(fields[0]), args: fields[1:]}
}

// parsePlay 解析 "1 3 @user2"：数字为手牌序号（从 1 开始），@ 开头为目标
func parsePlay(args []string, hand []protocol.Card) (cards []protocol.Card, targets []string, err error) {
	used := make(map[int]bool, len(args))
	cards = []protocol.Card{}
	for _, arg := range args {
		if name, ok := strings.CutPrefix(arg, "@"); ok {
			if name == "" {
				return nil, nil, fmt.Errorf("empty target")
			}
			targets = append(targets, name)
			continue
		}

		idx, convErr := strconv.Atoi(arg)
		if convErr != nil || idx < 1 || idx > len(hand) {
			return nil, nil, fmt.Errorf("no card #%s in hand", arg)
		}
		if used[idx] {
			return nil, nil, fmt.Errorf("card #%d chosen twice", idx)
		}
		used[idx] = true
		cards = append(cards, hand[idx-1])
	}
	return cards, targets, nil
}

// truncateName 截断玩家名称
func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) > maxLen {
		return string(runes[:maxLen-1]) + "…"
	}
	return name
}

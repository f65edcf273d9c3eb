package revise

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseCandidates 从模型原始输出中提取候选文本。
// 支持：JSON 字符串数组、{"candidates": [...]} 对象、元素为 {"text": ...} 的数组、
// ```json 代码块包裹的上述格式，以及逐行列出的纯文本。
// 结果去除首尾空白、去重并保持顺序；没有任何候选时返回 ErrResponseInvalid。
func ParseCandidates(raw string) ([]string, error) {
	body := stripFence(strings.TrimSpace(raw))
	var out []string
	res := gjson.Parse(body)
	if gjson.Valid(body) && (res.IsObject() || res.IsArray()) {
		if res.IsObject() {
			res = res.Get("candidates")
		}
		for _, item := range res.Array() {
			if item.IsObject() {
				item = item.Get("text")
			}
			out = append(out, item.String())
		}
	} else {
		for _, line := range strings.Split(body, "\n") {
			out = append(out, trimListMarker(line))
		}
	}
	out = dedupe(out)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no candidates in model output", ErrResponseInvalid)
	}
	return out, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func trimListMarker(line string) string {
	line = strings.TrimSpace(line)
	for _, p := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, p) {
			return strings.TrimSpace(line[len(p):])
		}
	}
	// "1. " / "2) "
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(line) && (line[i] == '.' || line[i] == ')') && line[i+1] == ' ' {
		return strings.TrimSpace(line[i+2:])
	}
	return line
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

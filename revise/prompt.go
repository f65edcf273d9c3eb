package revise

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/epbkit/linefit/binding"
)

// Prompt 是发给模型的一组系统/用户消息。
type Prompt struct {
	System string
	User   string
}

const systemTemplate = `You help Air Force members write EPB and AF Form 1206 performance statements.
Statements are dense, action-impact-result prose with standard abbreviations.
Return ONLY a JSON array of ${count} alternative replacements for the selected text. No commentary.`

var modeTemplates = map[Mode]string{
	ModeExpand:   `Expand the selection with more specific detail while keeping its meaning. Each alternative should be longer than the selection.`,
	ModeCompress: `Shorten the selection without losing impact. Prefer standard abbreviations and drop filler. Each alternative should be shorter than the selection.`,
	ModeGeneral:  `Rephrase the selection. Keep each alternative close to the selection's length (${selectionChars} characters).`,
}

const userTemplate = `Full statement:
${text}

Selected text (characters ${start}-${end}):
${selection}

Task: ${task}`

// DefaultCandidates 为请求的候选数量。
const DefaultCandidates = 3

// BuildPrompt 根据请求填充提示词模板；模板中出现未提供的占位符时返回错误。
func BuildPrompt(req Request) (Prompt, error) {
	data := map[string]interface{}{
		"count":          strconv.Itoa(DefaultCandidates),
		"text":           req.Text,
		"selection":      req.Selection,
		"selectionChars": strconv.Itoa(len([]rune(req.Selection))),
		"start":          strconv.Itoa(req.Range.Start),
		"end":            strconv.Itoa(req.Range.End),
	}
	return fillPrompt(systemTemplate, modeTemplates, userTemplate, req, data)
}

func fillPrompt(system string, modes map[Mode]string, user string, req Request, data map[string]interface{}) (Prompt, error) {
	mode := req.Mode
	if _, ok := modes[mode]; !ok {
		mode = ModeGeneral
	}
	task, err := binding.Interpolate(modes[mode], data)
	if err != nil {
		return Prompt{}, fmt.Errorf("%s 模板: %w", mode, err)
	}
	if req.MaxChars > 0 {
		task += " Each alternative must be at most " + strconv.Itoa(req.MaxChars) + " characters."
	}
	if s := strings.TrimSpace(req.Instruction); s != "" {
		task += "\nAdditional instruction: " + s
	}
	data["task"] = task
	var p Prompt
	if p.System, err = binding.Interpolate(system, data); err != nil {
		return Prompt{}, fmt.Errorf("系统模板: %w", err)
	}
	if p.User, err = binding.Interpolate(user, data); err != nil {
		return Prompt{}, fmt.Errorf("用户模板: %w", err)
	}
	return p, nil
}

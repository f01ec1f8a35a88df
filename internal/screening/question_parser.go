package screening

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxQuestions 单次生成最多保留的问题数量
const MaxQuestions = 5

const minQuestionLen = 10

var (
	questionMarker = regexp.MustCompile(`(?i)question\s*\d+[:.]?\s*`)
	numberedLine   = regexp.MustCompile(`^\s*[*\-]?\s*\d+[.)]\s+`)
)

// ParseQuestions 从模型回复中提取问题列表。
// 优先按 "Question N:" 标记切分；没有结果时退化为编号列表逐行解析。结果最多 MaxQuestions 条。
func ParseQuestions(text string) []string {
	questions := parseMarkedQuestions(text)
	if len(questions) == 0 {
		questions = parseNumberedLines(text)
	}
	if len(questions) > MaxQuestions {
		questions = questions[:MaxQuestions]
	}
	return questions
}

func parseMarkedQuestions(text string) []string {
	locs := questionMarker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var questions []string
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		q := cleanQuestion(text[loc[1]:end])
		if utf8.RuneCountInString(q) > minQuestionLen {
			questions = append(questions, q)
		}
	}
	return questions
}

func parseNumberedLines(text string) []string {
	var questions []string
	for _, line := range strings.Split(text, "\n") {
		loc := numberedLine.FindStringIndex(line)
		if loc == nil {
			continue
		}
		rest := line[loc[1]:]
		if utf8.RuneCountInString(rest) < minQuestionLen {
			continue
		}
		if q := strings.TrimSpace(rest); q != "" {
			questions = append(questions, q)
		}
	}
	return questions
}

// cleanQuestion 去除首尾空白与 markdown 加粗符号，内部空白折叠为单个空格
func cleanQuestion(s string) string {
	s = strings.Trim(s, " \t\r\n*")
	return strings.Join(strings.Fields(s), " ")
}

package screening

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"talent-scout-go/internal/types"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// 电话号码：7-15 个数字/空格/连字符/括号组成的片段，可带前导加号
	phonePattern = regexp.MustCompile(`\+?[\d\s\-()]{7,15}`)
	yearsPattern = regexp.MustCompile(`(?i)(\d+)\s*(years?|yrs?)`)
)

const minPhoneDigits = 7

// techVocabulary 可识别的技术关键词（小写）
var techVocabulary = []string{
	// languages
	"python", "javascript", "typescript", "java", "c++", "c#", "go", "rust",
	"ruby", "php", "swift", "kotlin", "scala", "r", "matlab",
	// frontend
	"react", "angular", "vue", "next.js", "nuxt", "svelte",
	// backend
	"django", "flask", "fastapi", "spring", "express", "nest.js",
	"node.js", "nodejs", "deno",
	// databases
	"postgresql", "mysql", "sqlite", "mongodb", "redis", "cassandra",
	"elasticsearch", "firebase", "supabase",
	// devops & cloud
	"docker", "kubernetes", "terraform", "ansible",
	"aws", "gcp", "azure", "heroku", "vercel",
	// tools
	"git", "github", "gitlab", "jira", "linux",
	// ml & data
	"machine learning", "ml", "deep learning", "tensorflow", "pytorch",
	"pandas", "numpy", "scikit-learn", "spark", "hadoop",
	// protocols & messaging
	"graphql", "rest", "grpc", "kafka", "rabbitmq",
}

// Extract 从一条用户输入中抽取字段并更新资料。
// 只填充尚为空的标量字段、只追加技术栈；姓名仅在 greeting / gathering_info 阶段抽取。
// 返回本次新写入的字段。
func Extract(utterance string, profile *types.CandidateProfile, stage Stage) []types.ProfileField {
	msg := strings.TrimSpace(utterance)
	var updated []types.ProfileField

	set := func(field types.ProfileField, value string) {
		if profile.SetIfAbsent(field, value) {
			updated = append(updated, field)
		}
	}

	if !profile.Has(types.FieldEmail) {
		set(types.FieldEmail, ExtractEmail(msg))
	}
	if !profile.Has(types.FieldPhone) {
		set(types.FieldPhone, ExtractPhone(msg))
	}
	if !profile.Has(types.FieldYearsExperience) {
		set(types.FieldYearsExperience, ExtractYearsExperience(msg))
	}
	for _, tech := range ExtractTechStack(msg) {
		profile.AddTech(tech)
	}
	if (stage == StageGreeting || stage == StageGatheringInfo) && !profile.Has(types.FieldFullName) {
		set(types.FieldFullName, ExtractFullName(msg))
	}
	// 职位和城市没有可用的模式，只在它们正是当前被询问的字段时接受简短回答
	if stage == StageGatheringInfo && len(updated) == 0 && !isTechListing(msg) {
		if missing := profile.MissingFields(); len(missing) > 0 && isDirectedField(missing[0]) {
			set(missing[0], ExtractDirectedAnswer(msg))
		}
	}
	return updated
}

func isDirectedField(f types.ProfileField) bool {
	return f == types.FieldDesiredPosition || f == types.FieldLocation
}

const maxDirectedAnswerWords = 6

// listConnectors 罗列技术栈时常见的连接词
var listConnectors = map[string]struct{}{
	"and": {}, "or": {}, "&": {}, "with": {}, "plus": {}, "also": {},
}

// isTechListing 回复是否只由技术关键词和连接词组成，例如 "Python and Docker"
func isTechListing(msg string) bool {
	rest := strings.ToLower(msg)
	hits := 0
	for _, tech := range techVocabulary {
		for {
			pos := indexWholeToken(rest, tech)
			if pos < 0 {
				break
			}
			rest = rest[:pos] + strings.Repeat(" ", len(tech)) + rest[pos+len(tech):]
			hits++
		}
	}
	if hits == 0 {
		return false
	}
	for _, word := range strings.Fields(rest) {
		word = strings.Trim(word, ",.;:/!")
		if word == "" {
			continue
		}
		if _, ok := listConnectors[word]; !ok {
			return false
		}
	}
	return true
}

// ExtractDirectedAnswer 把简短的陈述性回复（1-6 个词，不是反问）整体视为被询问字段的值
func ExtractDirectedAnswer(msg string) string {
	msg = strings.TrimSpace(msg)
	n := len(strings.Fields(msg))
	if n == 0 || n > maxDirectedAnswerWords || strings.Contains(msg, "?") {
		return ""
	}
	return strings.TrimRight(msg, ".!")
}

// ExtractDocument 从长文本（如简历）中抽取联系方式、年限和技术栈，不做姓名推断
func ExtractDocument(text string, profile *types.CandidateProfile) []types.ProfileField {
	var updated []types.ProfileField
	for _, f := range []struct {
		field types.ProfileField
		fn    func(string) string
	}{
		{types.FieldEmail, ExtractEmail},
		{types.FieldPhone, ExtractPhone},
		{types.FieldYearsExperience, ExtractYearsExperience},
	} {
		if profile.Has(f.field) {
			continue
		}
		if profile.SetIfAbsent(f.field, f.fn(text)) {
			updated = append(updated, f.field)
		}
	}
	for _, tech := range ExtractTechStack(text) {
		profile.AddTech(tech)
	}
	return updated
}

// ExtractEmail 返回第一个邮箱地址，没有则返回空字符串
func ExtractEmail(msg string) string {
	return emailPattern.FindString(msg)
}

// ExtractPhone 返回第一个包含至少 7 位数字的候选片段（去除首尾空白）。
// 偏向召回：较松散的数字文本也可能被识别为电话。
func ExtractPhone(msg string) string {
	for _, m := range phonePattern.FindAllString(msg, -1) {
		candidate := strings.TrimSpace(m)
		if countDigits(candidate) >= minPhoneDigits {
			return candidate
		}
	}
	return ""
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// ExtractYearsExperience 识别 "<N> years|yrs"，统一为 "<N> years"
func ExtractYearsExperience(msg string) string {
	m := yearsPattern.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	return m[1] + " years"
}

type techHit struct {
	pos   int
	order int
	name  string
}

// ExtractTechStack 按首次出现顺序返回匹配到的技术关键词（已规范大小写、已去重）
func ExtractTechStack(msg string) []string {
	lower := strings.ToLower(msg)
	var hits []techHit
	for i, tech := range techVocabulary {
		if pos := indexWholeToken(lower, tech); pos >= 0 {
			hits = append(hits, techHit{pos: pos, order: i, name: normalizeTech(tech)})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].pos != hits[b].pos {
			return hits[a].pos < hits[b].pos
		}
		return hits[a].order < hits[b].order
	})

	found := make([]string, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		key := strings.ToLower(h.name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		found = append(found, h.name)
	}
	return found
}

// indexWholeToken 返回 term 作为完整词出现的第一个位置，前后不能紧邻字母数字或下划线
func indexWholeToken(s, term string) int {
	offset := 0
	for {
		idx := strings.Index(s[offset:], term)
		if idx < 0 {
			return -1
		}
		start := offset + idx
		end := start + len(term)
		if !isWordByteBefore(s, start) && !isWordByteAt(s, end) {
			return start
		}
		offset = start + 1
	}
}

func isWordByteBefore(s string, i int) bool {
	if i <= 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func isWordByteAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// normalizeTech 长度大于 3 的按标题格式，否则视为缩写全大写
func normalizeTech(tech string) string {
	if utf8.RuneCountInString(tech) > 3 {
		return titleCase(tech)
	}
	return strings.ToUpper(tech)
}

// ExtractFullName 启发式识别姓名：1-4 个单词，每个单词为纯字母或以大写字母开头。
// 简短的非姓名回复（如 "Sounds good"）同样会被当作姓名，这是已知的误判来源。
func ExtractFullName(msg string) string {
	words := strings.Fields(msg)
	if len(words) < 1 || len(words) > 4 {
		return ""
	}
	for _, w := range words {
		first, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(first) && !isAlpha(w) {
			return ""
		}
	}
	return titleCase(strings.TrimSpace(msg))
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// titleCase 每段连续字母的首字母大写、其余小写（"o'neil" -> "O'Neil", "next.js" -> "Next.Js"）
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

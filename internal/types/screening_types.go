package types

import "strings"

// ProfileField 候选人资料中的标量字段名
type ProfileField string

const (
	FieldFullName        ProfileField = "full_name"
	FieldEmail           ProfileField = "email"
	FieldPhone           ProfileField = "phone"
	FieldYearsExperience ProfileField = "years_experience"
	FieldDesiredPosition ProfileField = "desired_position"
	FieldLocation        ProfileField = "location"
)

// RequiredFields 需要收集的必填字段，顺序即提问顺序
var RequiredFields = []ProfileField{
	FieldFullName,
	FieldEmail,
	FieldPhone,
	FieldYearsExperience,
	FieldDesiredPosition,
	FieldLocation,
}

// CandidateProfile 候选人资料，每个会话一份
// 标量字段一旦写入不再覆盖（先到先得），TechStack 只增不减。空字符串表示尚未提供。
type CandidateProfile struct {
	FullName        string   `json:"full_name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	YearsExperience string   `json:"years_experience"`
	DesiredPosition string   `json:"desired_position"`
	Location        string   `json:"location"`
	TechStack       []string `json:"tech_stack"`
}

// Get 返回指定字段的当前值
func (p *CandidateProfile) Get(field ProfileField) string {
	switch field {
	case FieldFullName:
		return p.FullName
	case FieldEmail:
		return p.Email
	case FieldPhone:
		return p.Phone
	case FieldYearsExperience:
		return p.YearsExperience
	case FieldDesiredPosition:
		return p.DesiredPosition
	case FieldLocation:
		return p.Location
	default:
		return ""
	}
}

// Has 字段是否已填写
func (p *CandidateProfile) Has(field ProfileField) bool {
	return p.Get(field) != ""
}

// SetIfAbsent 仅当字段为空时写入，返回是否写入成功
func (p *CandidateProfile) SetIfAbsent(field ProfileField, value string) bool {
	if value == "" || p.Has(field) {
		return false
	}
	switch field {
	case FieldFullName:
		p.FullName = value
	case FieldEmail:
		p.Email = value
	case FieldPhone:
		p.Phone = value
	case FieldYearsExperience:
		p.YearsExperience = value
	case FieldDesiredPosition:
		p.DesiredPosition = value
	case FieldLocation:
		p.Location = value
	default:
		return false
	}
	return true
}

// MissingFields 按固定顺序返回尚未填写的必填字段
func (p *CandidateProfile) MissingFields() []ProfileField {
	var missing []ProfileField
	for _, f := range RequiredFields {
		if !p.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// HasTech 大小写不敏感地判断技术栈中是否已有该项
func (p *CandidateProfile) HasTech(tech string) bool {
	for _, t := range p.TechStack {
		if strings.EqualFold(t, tech) {
			return true
		}
	}
	return false
}

// AddTech 追加技术栈条目（大小写不敏感去重），返回是否追加
func (p *CandidateProfile) AddTech(tech string) bool {
	if tech == "" || p.HasTech(tech) {
		return false
	}
	p.TechStack = append(p.TechStack, tech)
	return true
}

// FirstName 返回名字的第一个单词，未知时返回空字符串
func (p *CandidateProfile) FirstName() string {
	parts := strings.Fields(p.FullName)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// Clone 深拷贝，供持久化等只读方使用
func (p *CandidateProfile) Clone() CandidateProfile {
	c := *p
	if p.TechStack != nil {
		c.TechStack = append([]string(nil), p.TechStack...)
	}
	return c
}

// QAProgress 技术问答进度
type QAProgress struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
}

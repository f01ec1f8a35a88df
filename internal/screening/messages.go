package screening

import (
	"fmt"
	"strings"
)

// exitKeywords 用户输入中出现任一单词即结束会话
var exitKeywords = map[string]struct{}{
	"exit":    {},
	"quit":    {},
	"bye":     {},
	"goodbye": {},
	"end":     {},
	"stop":    {},
}

// IsExitRequest 按空白切分并小写后，任一单词命中退出关键词
func IsExitRequest(utterance string) bool {
	for _, tok := range strings.Fields(strings.ToLower(utterance)) {
		if _, ok := exitKeywords[tok]; ok {
			return true
		}
	}
	return false
}

// Greeting 会话开始时的欢迎语
const Greeting = "👋 **Welcome to the TalentScout Hiring Assistant!**\n\n" +
	"I'll run your initial screening for technology roles. It takes about 5-10 minutes in three steps:\n\n" +
	"1. 📋 **Basic details**: name, contact information, experience\n" +
	"2. 🛠️ **Tech stack**: the languages, frameworks and tools you use\n" +
	"3. 💡 **Technical questions**: a few questions tailored to your stack\n\n" +
	"Your information is handled securely and used only for recruitment.\n\n" +
	"**To get started, what is your full name?** 😊\n\n" +
	"*(Type `exit` or `bye` at any time to end the session.)*"

// Farewell 结束语，firstName 为空时使用 "there"
func Farewell(firstName string) string {
	if firstName == "" {
		firstName = "there"
	}
	return fmt.Sprintf("🎉 **Thank you, %s!**\n\n"+
		"Your profile has been sent to the TalentScout team. What happens next:\n\n"+
		"- 📧 A confirmation email within **24 hours**\n"+
		"- 👥 A recruiter reviews your profile within **3-5 business days**\n"+
		"- 📞 If you are shortlisted, we will contact you to schedule a detailed interview\n\n"+
		"Thanks for your time and best of luck! 🚀\n\n"+
		"*This session has ended. Start a new session to begin again.*", firstName)
}

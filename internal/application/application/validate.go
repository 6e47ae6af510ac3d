package application

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// minStatementLength 申请陈述最短长度
const minStatementLength = 50

var (
	// emailPattern 邮箱格式校验
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	// phonePattern 印度手机号：10 位数字且以 6-9 开头
	phonePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	// pincodePattern 邮政编码：6 位数字
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// trimCommand 去除所有字段的首尾空白
func trimCommand(cmd SubmitApplicationCommand) SubmitApplicationCommand {
	cmd.FullName = strings.TrimSpace(cmd.FullName)
	cmd.Email = strings.TrimSpace(cmd.Email)
	cmd.Phone = strings.TrimSpace(cmd.Phone)
	cmd.DateOfBirth = strings.TrimSpace(cmd.DateOfBirth)
	cmd.Gender = strings.TrimSpace(cmd.Gender)
	cmd.Address = strings.TrimSpace(cmd.Address)
	cmd.City = strings.TrimSpace(cmd.City)
	cmd.State = strings.TrimSpace(cmd.State)
	cmd.Pincode = strings.TrimSpace(cmd.Pincode)
	cmd.Institution = strings.TrimSpace(cmd.Institution)
	cmd.Course = strings.TrimSpace(cmd.Course)
	cmd.Statement = strings.TrimSpace(cmd.Statement)
	return cmd
}

// validateSubmission 校验提交命令，返回全部违规项而不是遇到第一条就失败
func validateSubmission(cmd SubmitApplicationCommand) []string {
	var violations []string

	required := []struct {
		field string
		value string
	}{
		{"full_name", cmd.FullName},
		{"email", cmd.Email},
		{"phone", cmd.Phone},
		{"date_of_birth", cmd.DateOfBirth},
		{"gender", cmd.Gender},
		{"address", cmd.Address},
		{"city", cmd.City},
		{"state", cmd.State},
		{"pincode", cmd.Pincode},
		{"institution", cmd.Institution},
		{"course", cmd.Course},
		{"statement", cmd.Statement},
	}
	for _, f := range required {
		if f.value == "" {
			violations = append(violations, f.field+" is required")
		}
	}

	if cmd.Email != "" && !emailPattern.MatchString(cmd.Email) {
		violations = append(violations, "email is invalid")
	}
	if cmd.Phone != "" && !phonePattern.MatchString(cmd.Phone) {
		violations = append(violations, "phone must be 10 digits starting with 6-9")
	}
	if cmd.Pincode != "" && !pincodePattern.MatchString(cmd.Pincode) {
		violations = append(violations, "pincode must be exactly 6 digits")
	}
	if cmd.Statement != "" && utf8.RuneCountInString(cmd.Statement) < minStatementLength {
		violations = append(violations, "statement must be at least 50 characters")
	}

	return violations
}

package mail

import (
	"fmt"
	"html/template"
	"strings"
)

const (
	templateWelcome            = "welcome"
	templatePasswordReset      = "reset-password"
	templateOrganizationInvite = "organization-invite"
)

const baseStyle = `
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
    .button { display: inline-block; padding: 10px 20px; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
    .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
`

var templateSources = map[string]string{
	templateWelcome: `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Welcome to Our Platform</title><style>` + baseStyle + `</style></head>
<body>
    <h1>Welcome to Our Platform!</h1>
    <p>Hello {{.UserName}},</p>
    <p>Thank you for joining our platform. We're excited to have you on board!</p>
    <p>Click the button below to login to your account:</p>
    <a href="{{.LoginLink}}" class="button">Login to Your Account</a>
    <div class="footer">
        <p>Best regards,<br>Your App Team</p>
        <p>&copy; {{.Year}} Your App. All rights reserved.</p>
    </div>
</body>
</html>`,

	templatePasswordReset: `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Password Reset</title><style>` + baseStyle + `</style></head>
<body>
    <h1>Password Reset Request</h1>
    <p>Hello {{.UserName}},</p>
    <p>We received a request to reset your password. Click the button below to reset it:</p>
    <a href="{{.ResetLink}}" class="button">Reset Password</a>
    <p>If you didn't request this, you can safely ignore this email.</p>
    <p>This link will expire in 1 hour.</p>
    <div class="footer">
        <p>Best regards,<br>Your App Team</p>
        <p>&copy; {{.Year}} Your App. All rights reserved.</p>
    </div>
</body>
</html>`,

	templateOrganizationInvite: `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Organization Invitation</title><style>` + baseStyle + `</style></head>
<body>
    <h1>Organization Invitation</h1>
    <p>Hello!</p>
    <p>You have been invited by {{.InviterName}} to join {{.OrganizationName}}.</p>
    <p>Click the button below to accept the invitation:</p>
    <a href="{{.InviteLink}}" class="button">Accept Invitation</a>
    <p>If the button doesn't work, copy and paste this link into your browser:</p>
    <p>{{.InviteLink}}</p>
    <div class="footer">
        <p>Best regards,<br>Your App Team</p>
        <p>&copy; {{.Year}} Your App. All rights reserved.</p>
    </div>
</body>
</html>`,
}

// compileTemplates parses every named template once at startup. The result
// is immutable and shared by all sends.
func compileTemplates() (map[string]*template.Template, error) {
	compiled := make(map[string]*template.Template, len(templateSources))
	for name, source := range templateSources {
		tmpl, err := template.New(name).Parse(strings.TrimSpace(source))
		if err != nil {
			return nil, fmt.Errorf("compile template %s: %w", name, err)
		}
		compiled[name] = tmpl
	}
	return compiled, nil
}

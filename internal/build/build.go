package build

import "strings"

var (
	Version = "dev"
	AppName = "Orca"
	Slug    = ""
)

func init() {
	if Slug == "" {
		Slug = strings.ToLower(AppName)
	}
}

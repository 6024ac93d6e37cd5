// Package web 内嵌聊天页面模板
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templates embed.FS

// Templates 解析内嵌的页面模板
func Templates() *template.Template {
	return template.Must(template.ParseFS(templates, "templates/*.html"))
}

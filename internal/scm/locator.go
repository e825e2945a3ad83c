// Package scm 解析 SCM 仓库地址（如 git@github.com:org/repo.git#branch）。
package scm

import (
	"fmt"
	"strings"

	"github.com/chiwei-platform/executor-k8s/internal/domain"
)

const DefaultBranch = "master"

// Locator 是从 SCM 地址中解析出的组织、仓库和分支。
type Locator struct {
	Org    string
	Repo   string
	Branch string
}

// Parse 解析 scheme:host:org/repo.git[#branch] 形式的地址。
// 没有 #branch 片段时分支为 master，仓库名去掉 .git 后缀。
func Parse(url string) (Locator, error) {
	loc := Locator{Branch: DefaultBranch}

	rest := url
	if i := strings.Index(rest, "#"); i >= 0 {
		if branch := rest[i+1:]; branch != "" {
			loc.Branch = branch
		}
		rest = rest[:i]
	}

	path := rest
	if i := strings.LastIndex(path, ":"); i >= 0 {
		path = path[i+1:]
	}

	slash := strings.LastIndex(path, "/")
	if slash < 0 {
		return Locator{}, fmt.Errorf("%w: %q has no org/repo path", domain.ErrMalformedLocator, url)
	}
	loc.Org = strings.Trim(path[:slash], "/")
	loc.Repo = strings.TrimSuffix(path[slash+1:], ".git")
	if loc.Org == "" || loc.Repo == "" {
		return Locator{}, fmt.Errorf("%w: %q has an empty org or repo", domain.ErrMalformedLocator, url)
	}
	return loc, nil
}

// Package permissions описывает статический каталог прав и правила
// раскрытия модульных прав в гранулярные и обратного сжатия.
//
// Право: строка из одного ("USER_MANAGEMENT", модульное) или двух
// ("USER_MANAGEMENT.CREATE_USER", гранулярное) сегментов через точку.
package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Неявные права, которые есть у любого аутентифицированного пользователя.
// В роли не назначаются.
const (
	AnyWithAuth = "ANY_WITH_AUTH"
	Owner       = "OWNER"
)

// Модуль управления ролями.
const (
	RoleManagement = "ROLE_MANAGEMENT"
	CreateRole     = "ROLE_MANAGEMENT.CREATE_ROLE"
	ReadRole       = "ROLE_MANAGEMENT.READ_ROLE"
	UpdateRole     = "ROLE_MANAGEMENT.UPDATE_ROLE"
	DeleteRole     = "ROLE_MANAGEMENT.DELETE_ROLE"
)

// Модуль управления пользователями.
const (
	UserManagement = "USER_MANAGEMENT"
	CreateUser     = "USER_MANAGEMENT.CREATE_USER"
	ReadUser       = "USER_MANAGEMENT.READ_USER"
	UpdateUser     = "USER_MANAGEMENT.UPDATE_USER"
	DeleteUser     = "USER_MANAGEMENT.DELETE_USER"
)

// ErrUnknownPermission: строки нет в каталоге.
var ErrUnknownPermission = errors.New("unknown permission")

// catalog: модуль -> исчерпывающий список гранулярных прав.
var catalog = map[string][]string{
	RoleManagement: {CreateRole, ReadRole, UpdateRole, DeleteRole},
	UserManagement: {CreateUser, ReadUser, UpdateUser, DeleteUser},
}

// Set: множество прав.
type Set map[string]struct{}

// NewSet строит множество из списка.
func NewSet(perms ...string) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}

	return s
}

// Has проверяет наличие права.
func (s Set) Has(p string) bool {
	_, ok := s[p]
	return ok
}

// Add добавляет права.
func (s Set) Add(perms ...string) {
	for _, p := range perms {
		s[p] = struct{}{}
	}
}

// Slice возвращает отсортированный список.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)

	return out
}

// Modules возвращает отсортированный список модулей каталога.
func Modules() []string {
	out := make([]string, 0, len(catalog))
	for m := range catalog {
		out = append(out, m)
	}
	sort.Strings(out)

	return out
}

// Children возвращает гранулярные права модуля (nil для неизвестного модуля).
func Children(module string) []string {
	children, ok := catalog[module]
	if !ok {
		return nil
	}

	return append([]string(nil), children...)
}

// All возвращает полный каталог: модули и их гранулярные права.
func All() []string {
	s := make(Set)
	for m, children := range catalog {
		s.Add(m)
		s.Add(children...)
	}

	return s.Slice()
}

// IsModule сообщает, является ли строка модульным правом каталога.
func IsModule(p string) bool {
	_, ok := catalog[p]
	return ok
}

// Known сообщает, есть ли право в каталоге.
func Known(p string) bool {
	if IsModule(p) {
		return true
	}

	module, _, ok := strings.Cut(p, ".")
	if !ok {
		return false
	}

	for _, c := range catalog[module] {
		if c == p {
			return true
		}
	}

	return false
}

// Validate возвращает ErrUnknownPermission для первой строки не из каталога.
func Validate(perms []string) error {
	for _, p := range perms {
		if !Known(p) {
			return fmt.Errorf("%w: %q", ErrUnknownPermission, p)
		}
	}

	return nil
}

// Expand раскрывает право. Гранулярное даёт только себя, модульное даёт себя и всех детей.
func Expand(p string) Set {
	s := NewSet(p)
	s.Add(catalog[p]...)

	return s
}

// ExpandAll раскрывает каждое право набора и объединяет результат.
func ExpandAll(perms []string) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s.Add(p)
		s.Add(catalog[p]...)
	}

	return s
}

// Normalize приводит набор к минимальной эквивалентной форме:
// полный набор детей модуля сворачивается в модуль, дети присутствующего
// модуля отбрасываются, дубликаты удаляются. Результат отсортирован.
// Normalize(Normalize(S)) == Normalize(S).
func Normalize(perms []string) []string {
	in := NewSet(perms...)
	out := make(Set, len(in))

	for module, children := range catalog {
		full := in.Has(module)
		if !full {
			full = true
			for _, c := range children {
				if !in.Has(c) {
					full = false
					break
				}
			}
		}

		if full {
			out.Add(module)
		}
	}

	for p := range in {
		if IsModule(p) {
			continue
		}

		module, _, _ := strings.Cut(p, ".")
		if out.Has(module) {
			continue
		}

		out.Add(p)
	}

	return out.Slice()
}

package models

import (
	"fmt"
	"strings"
)

// NoticeType ist die Art einer Bekanntmachung. Eine CSV-Datei enthält genau einen Typ.
type NoticeType string

const (
	NoticeTender NoticeType = "tender"
	NoticeAward  NoticeType = "award"
	NoticeSpend  NoticeType = "spend"
)

// NoticeTypes listet alle Typen in stabiler Reihenfolge.
var NoticeTypes = []NoticeType{NoticeTender, NoticeAward, NoticeSpend}

// releaseTags bildet Notice-Typen auf OCDS-Release-Tags ab. Spend-Notices sind OCDS-seitig "implementation".
var releaseTags = map[NoticeType]string{
	NoticeTender: "tender",
	NoticeAward:  "award",
	NoticeSpend:  "implementation",
}

// ParseNoticeType liest einen Notice-Typ ohne Beachtung der Groß-/Kleinschreibung.
func ParseNoticeType(s string) (NoticeType, error) {
	nt := NoticeType(strings.ToLower(strings.TrimSpace(s)))
	if !nt.Valid() {
		return "", fmt.Errorf("unknown notice type %q", s)
	}
	return nt, nil
}

// Valid meldet, ob nt einer der bekannten Typen ist.
func (nt NoticeType) Valid() bool {
	_, ok := releaseTags[nt]
	return ok
}

// ReleaseTag liefert den OCDS-Tag für den Typ.
func (nt NoticeType) ReleaseTag() string {
	return releaseTags[nt]
}

func (nt NoticeType) String() string { return string(nt) }

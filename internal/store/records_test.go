package store

import (
	"strings"
	"testing"
	"time"

	"github.com/mediate-project/mediate/internal/models"
)

func TestBuildModerationFilter(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	where, args, next := buildModerationFilter(models.ModerationQueryOpts{
		State:      models.StatePending,
		TargetType: models.EntityPerson,
		EditorID:   "e1",
		Since:      &since,
	})

	want := "WHERE state = $1 AND target_type = $2 AND editor_id::text = $3 AND created_at >= $4"
	if where != want {
		t.Errorf("where = %q, want %q", where, want)
	}

	if len(args) != 4 || next != 5 {
		t.Errorf("args = %v, next = %d", args, next)
	}
}

func TestBuildModerationFilter_Empty(t *testing.T) {
	where, args, next := buildModerationFilter(models.ModerationQueryOpts{})

	if where != "" || len(args) != 0 || next != 1 {
		t.Errorf("unexpected filter: %q %v %d", where, args, next)
	}
}

func TestEntityTables_CoverColumns(t *testing.T) {
	for typ, tbl := range entityTables {
		e := tbl.newEntity()
		if e.EntityType() != typ {
			t.Errorf("%s: table builds %s", typ, e.EntityType())
		}

		if n := len(tbl.values(e)); n != len(tbl.columns) {
			t.Errorf("%s: %d values for %d columns", typ, n, len(tbl.columns))
		}

		if n := len(tbl.dest(e)); n != len(tbl.columns) {
			t.Errorf("%s: %d scan targets for %d columns", typ, n, len(tbl.columns))
		}

		for ref := range tbl.refs {
			if !strings.Contains(tbl.selectList(), `"`+ref+`"::text`) {
				t.Errorf("%s: reference column %s not cast in select list", typ, ref)
			}
		}
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(2, 3); got != "$2, $3, $4" {
		t.Errorf("placeholders = %q", got)
	}
}

package restraint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligate/edgeprep/internal/domains"
)

func newTestRewriter(t *testing.T) *Rewriter {
	r, err := NewRewriter(&domains.NewDefaultConfig().Restraints)
	require.NoError(t, err)
	return r
}

func TestParseInclude(t *testing.T) {
	tests := []struct {
		line string
		ok   bool
		path string
	}{
		{line: `#include "posre.itp"`, ok: true, path: "posre.itp"},
		{line: "  #include\t<toppar/posre.itp> ; protein", ok: true, path: "toppar/posre.itp"},
		{line: `; #include "posre.itp"`, ok: false},
		{line: `#includes "posre.itp"`, ok: false},
		{line: `#include"posre.itp"`, ok: true, path: "posre.itp"},
		{line: `# include "posre.itp"`, ok: true, path: "posre.itp"},
		{line: "#\tinclude<posre.itp>", ok: true, path: "posre.itp"},
		{line: `# define POSRES`, ok: false},
		{line: `#include "posre.itp`, ok: false},
		{line: `#include ""`, ok: false},
		{line: `#include "posre.itp" trailing`, ok: false},
		{line: `#ifdef POSRES`, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			inc, ok := ParseInclude(tt.line)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.path, inc.Path)
				assert.Equal(t, tt.line, inc.String())
			}
		})
	}
}

func TestRewriter_Rewrite(t *testing.T) {
	r := newTestRewriter(t)
	data := "; position restraints\r\n" +
		"#ifdef POSRES\r\n" +
		"#include \"posre.itp\"\r\n" +
		"#endif\r\n" +
		"  #include <toppar/posre.itp> ; ligand\n" +
		"; #include \"posre.itp\"\n" +
		"#include \"posre.itp.bak\"\n" +
		"#include \"POSRE.itp\"\n" +
		"#include\"posre.itp\"\n" +
		"# include \"posre.itp\"\n" +
		"[ molecules ]"

	res, changed := r.Rewrite([]byte(data))
	assert.Equal(t, 4, changed)
	assert.Equal(t, "; position restraints\r\n"+
		"#ifdef POSRES\r\n"+
		"#include \"../posre_Ligand.itp\"\r\n"+
		"#endif\r\n"+
		"  #include <../posre_Ligand.itp> ; ligand\n"+
		"; #include \"posre.itp\"\n"+
		"#include \"posre.itp.bak\"\n"+
		"#include \"POSRE.itp\"\n"+
		"#include\"../posre_Ligand.itp\"\n"+
		"# include \"../posre_Ligand.itp\"\n"+
		"[ molecules ]", string(res))

	again, changed := r.Rewrite(res)
	assert.Equal(t, 0, changed)
	assert.Equal(t, res, again)
}

func TestRewriter_RewriteDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"topol.top":        "#include \"merged.itp\"\n#ifdef POSRES\n#include \"posre.itp\"\n#endif\n",
		"merged.itp":       "[ moleculetype ]\n",
		"posre_Ligand.itp": "#include \"posre.itp\"\n",
		"em.tpr":           "#include \"posre.itp\"\x00\x01",
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o600))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "input", "primary"), 0o755))
	nested := filepath.Join(dir, "input", "primary", "topol.top")
	require.NoError(t, os.WriteFile(nested, []byte("#include \"posre.itp\"\n"), 0o644))

	rewritten, err := newTestRewriter(t).RewriteDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"topol.top"}, rewritten)

	top, err := os.ReadFile(filepath.Join(dir, "topol.top"))
	require.NoError(t, err)
	assert.Equal(t, "#include \"merged.itp\"\n#ifdef POSRES\n#include \"../posre_Ligand.itp\"\n#endif\n", string(top))
	info, err := os.Stat(filepath.Join(dir, "topol.top"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	for _, name := range []string{"posre_Ligand.itp", "em.tpr", "merged.itp"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, files[name], string(data), name)
	}
	data, err := os.ReadFile(nested)
	require.NoError(t, err)
	assert.Equal(t, "#include \"posre.itp\"\n", string(data))
}

func TestNewRewriter_Invalid(t *testing.T) {
	_, err := NewRewriter(&domains.Restraints{GenericName: "posre.itp", LigandName: "posre.itp"})
	require.ErrorContains(t, err, "are the same")

	_, err = NewRewriter(&domains.Restraints{GenericName: "posre.itp"})
	require.Error(t, err)
}

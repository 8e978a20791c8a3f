package cmds

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatPage = `<html><head><link rel="canonical" href="https://chatgpt.com/c/abc"></head><body><main><div>
<div data-testid="conversation-turn-1" data-message-author-role="user"><div class="markdown">Explain goroutines</div></div>
<div data-testid="conversation-turn-2" data-message-author-role="assistant"><div class="markdown">Goroutines are lightweight threads.</div></div>
</div></main></body></html>`

type rowCollector struct {
	rows []types.Row
}

func (c *rowCollector) AddRow(_ context.Context, row types.Row) error {
	c.rows = append(c.rows, row)
	return nil
}

func (c *rowCollector) field(t *testing.T, i int, name string) interface{} {
	t.Helper()
	require.Less(t, i, len(c.rows))
	v, ok := c.rows[i].Get(name)
	require.True(t, ok, "row %d has no field %s", i, name)
	return v
}

func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(page, []byte(chatPage), 0o644))

	viper.Reset()
	viper.Set("store", "file")
	viper.Set("store-path", filepath.Join(dir, "annotations.json"))
	viper.Set("source", "auto")
	viper.Set("layout", "auto")
	t.Cleanup(viper.Reset)
	return page
}

func TestOutlineRows(t *testing.T) {
	ctx := context.Background()
	page := setupCLI(t)

	gp := &rowCollector{}
	require.NoError(t, runOutline(ctx, &OutlineSettings{Page: page}, gp))
	require.Len(t, gp.rows, 2)
	assert.Equal(t, 1, gp.field(t, 0, "ordinal"))
	assert.Equal(t, "user", gp.field(t, 0, "role"))
	assert.Equal(t, "1. Explain goroutines", gp.field(t, 0, "label"))
	assert.Equal(t, "known:conversation-turn-1|r:user", gp.field(t, 0, "key"))
	assert.Equal(t, "assistant", gp.field(t, 1, "role"))
	assert.Equal(t, false, gp.field(t, 1, "favorite"))
	_, ok := gp.rows[0].Get("selector")
	assert.False(t, ok)

	gp = &rowCollector{}
	require.NoError(t, runOutline(ctx, &OutlineSettings{Page: page, WithSelector: true, WithPage: true}, gp))
	require.Len(t, gp.rows, 2)
	assert.Equal(t, "https://chatgpt.com/c/abc", gp.field(t, 1, "url"))
	assert.Equal(t, "chatgpt", gp.field(t, 1, "layout"))
	assert.NotEmpty(t, gp.field(t, 1, "selector"))
}

func TestOutlineOnlyFavoritesEmpty(t *testing.T) {
	page := setupCLI(t)
	viper.Set("only-favorites", true)

	gp := &rowCollector{}
	require.NoError(t, runOutline(context.Background(), &OutlineSettings{Page: page}, gp))
	assert.Empty(t, gp.rows)
}

func TestStarRenameAndExport(t *testing.T) {
	ctx := context.Background()
	page := setupCLI(t)

	gp := &rowCollector{}
	require.NoError(t, runStar(ctx, &StarSettings{Page: page, Turn: "2"}, gp))
	require.Len(t, gp.rows, 1)
	assert.Equal(t, true, gp.field(t, 0, "favorite"))
	assert.Equal(t, "known:conversation-turn-2|r:assistant", gp.field(t, 0, "key"))

	gp = &rowCollector{}
	require.NoError(t, runRename(ctx, &RenameSettings{
		Page: page,
		Turn: "known:conversation-turn-2|r:assistant",
		Name: []string{"Goroutine", "answer"},
	}, gp))
	assert.Equal(t, "Goroutine answer", gp.field(t, 0, "name"))
	assert.Equal(t, "Goroutine answer", gp.field(t, 0, "label"))

	gp = &rowCollector{}
	require.NoError(t, runOutline(ctx, &OutlineSettings{Page: page}, gp))
	assert.Equal(t, "Goroutine answer", gp.field(t, 1, "label"))
	assert.Equal(t, true, gp.field(t, 1, "favorite"))

	gp = &rowCollector{}
	require.NoError(t, runAnnotationsList(ctx, &AnnotationsListSettings{}, true, gp))
	require.Len(t, gp.rows, 1)
	assert.Equal(t, "known:conversation-turn-2|r:assistant", gp.field(t, 0, "key"))

	var out bytes.Buffer
	require.NoError(t, runExport(ctx, &ExportSettings{Page: page, Format: "md", Stdout: true}, &out))
	assert.Contains(t, out.String(), "## 2. [Assistant] Goroutine answer")
	assert.Contains(t, out.String(), "~~~text\nGoroutines are lightweight threads.\n~~~")

	dir := t.TempDir()
	out.Reset()
	require.NoError(t, runExport(ctx, &ExportSettings{Page: page, Format: "html", Dir: dir}, &out))
	path := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(filepath.Base(path), "chatgpt_favorites_"))
	assert.Equal(t, ".html", filepath.Ext(path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestRenameToEmptyRestoresDefaultLabel(t *testing.T) {
	ctx := context.Background()
	page := setupCLI(t)

	require.NoError(t, runRename(ctx, &RenameSettings{Page: page, Turn: "1", Name: []string{"Intro"}}, &rowCollector{}))
	gp := &rowCollector{}
	require.NoError(t, runRename(ctx, &RenameSettings{Page: page, Turn: "1"}, gp))
	assert.Equal(t, "", gp.field(t, 0, "name"))
	assert.Equal(t, "1. Explain goroutines", gp.field(t, 0, "label"))
}

func TestExportWithoutFavorites(t *testing.T) {
	page := setupCLI(t)
	dir := t.TempDir()

	var out bytes.Buffer
	require.NoError(t, runExport(context.Background(), &ExportSettings{Page: page, Format: "md", Dir: dir}, &out))
	assert.Contains(t, out.String(), "No favorite turns")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportUnknownFormat(t *testing.T) {
	page := setupCLI(t)
	err := runExport(context.Background(), &ExportSettings{Page: page, Format: "pdf"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestResolveKeyErrors(t *testing.T) {
	ctx := context.Background()
	page := setupCLI(t)

	assert.Error(t, runStar(ctx, &StarSettings{Page: page, Turn: "7"}, &rowCollector{}))
	assert.Error(t, runStar(ctx, &StarSettings{Page: page, Turn: "known:missing|r:user"}, &rowCollector{}))
}

func TestLocateRow(t *testing.T) {
	page := setupCLI(t)

	gp := &rowCollector{}
	require.NoError(t, runLocate(context.Background(), &LocateSettings{Page: page, Turn: "1"}, gp))
	require.Len(t, gp.rows, 1)
	assert.Equal(t, 1, gp.field(t, 0, "ordinal"))
	assert.Equal(t, "user", gp.field(t, 0, "role"))
	assert.Equal(t, "Explain goroutines", gp.field(t, 0, "preview"))
	selector, _ := gp.field(t, 0, "selector").(string)
	assert.True(t, strings.HasSuffix(selector, "div:nth-child(1)"), selector)
}

func TestAnnotationsImportAndDump(t *testing.T) {
	ctx := context.Background()
	setupCLI(t)

	var out bytes.Buffer
	payload := `{"items":{"known:a|r:user":{"name":"First","fav":true},"known:b|r:assistant":{"fav":false}}}`
	require.NoError(t, runAnnotationsImport(ctx, &AnnotationsImportSettings{File: "-"}, strings.NewReader(payload), &out))
	assert.Equal(t, "imported 2 annotations\n", out.String())

	gp := &rowCollector{}
	require.NoError(t, runAnnotationsList(ctx, &AnnotationsListSettings{Match: "known:a*"}, false, gp))
	require.Len(t, gp.rows, 1)
	assert.Equal(t, "First", gp.field(t, 0, "name"))
	assert.Equal(t, true, gp.field(t, 0, "favorite"))

	err := runAnnotationsImport(ctx, &AnnotationsImportSettings{File: "-"}, strings.NewReader(`{"items":[]}`), &out)
	assert.Error(t, err)
}

func TestEventSchemas(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeEventSchemas(&out))

	var schemas map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out.Bytes(), &schemas))
	assert.Len(t, schemas, 3)
	assert.Contains(t, schemas, "outline-rebuilt")
}

func TestAddToRootCommand(t *testing.T) {
	rootCmd := &cobra.Command{Use: "chatnav"}
	AddStoreFlags(rootCmd.PersistentFlags())
	AddSourceFlags(rootCmd.PersistentFlags())
	require.NoError(t, AddToRootCommand(rootCmd))

	for _, path := range [][]string{
		{"outline"}, {"watch"}, {"star"}, {"rename"}, {"locate"}, {"export"}, {"schema"},
		{"annotations", "dump"}, {"annotations", "favorites"}, {"annotations", "import"},
	} {
		c, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], c.Name())
	}

	c, _, err := rootCmd.Find([]string{"outline"})
	require.NoError(t, err)
	assert.NotNil(t, c.Flags().Lookup("output"), "glazed output flags")
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/bl4serial/pkg/api"
	"github.com/ssargent/bl4serial/pkg/config"
	"github.com/ssargent/bl4serial/pkg/di"
	"github.com/ssargent/bl4serial/pkg/savefile"
	"github.com/ssargent/bl4serial/pkg/serial"
)

const weaponSerial = "@Ugr$Q9m/$Qa!a%H`NgZl^aX^(?UrYc"

const testSave = `state:
  inventory:
    items:
      backpack:
        slot_0:
          serial: '@Ugr$Q9m/$Qa!a%H` + "`" + `NgZl^aX^(?UrYc'
  lostloot:
    items:
      - serial: '@Uer$Q9m/$Qa!a%H` + "`" + `NgZl^aX^(?UrYc'
`

// resetFlags restores every flag so runs of the shared command tree do not
// leak into each other
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.SaveConfig(config.DefaultConfig(), path))
	return path
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	SetContainer(nil)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestDecodeCommand(t *testing.T) {
	cfg := writeTestConfig(t)

	t.Run("json", func(t *testing.T) {
		out, _, err := executeCommand(t, "decode", "--config", cfg, "-o", "json", weaponSerial, "bogus")
		require.NoError(t, err)

		var items []serial.Item
		require.NoError(t, json.Unmarshal([]byte(out), &items))
		require.Len(t, items, 2)
		assert.Equal(t, "r", items[0].ItemType)
		require.NotNil(t, items[0].Stats.Level)
		assert.Equal(t, 16, *items[0].Stats.Level)
		assert.Equal(t, serial.ItemTypeError, items[1].ItemType)
	})

	t.Run("non-terminal defaults to json", func(t *testing.T) {
		out, _, err := executeCommand(t, "decode", "--config", cfg, weaponSerial)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "["))
	})

	t.Run("table", func(t *testing.T) {
		out, _, err := executeCommand(t, "decode", "--config", cfg, "-o", "table", weaponSerial)
		require.NoError(t, err)
		assert.Contains(t, out, "Weapon (r)")
		assert.Contains(t, out, "Legendary")
		assert.Contains(t, out, "5340")
		assert.Contains(t, out, "189,101,114,251")
	})

	t.Run("raw fields json", func(t *testing.T) {
		out, _, err := executeCommand(t, "decode", "--config", cfg, "--raw", "-o", "json", weaponSerial, "bogus")
		require.NoError(t, err)

		var items []rawItem
		require.NoError(t, json.Unmarshal([]byte(out), &items))
		require.Len(t, items, 2)
		fields := make(map[string]int64)
		for _, f := range items[0].Fields {
			fields[f.Key] = f.Value
		}
		assert.Equal(t, int64(3692315303), fields["header_be"])
		assert.Equal(t, int64(220), fields["byte_0"])
		assert.Equal(t, int64(5340), fields["val16_at_0"])
		assert.Empty(t, items[1].Fields)
		assert.NotEmpty(t, items[1].Error)
	})

	t.Run("raw fields table", func(t *testing.T) {
		out, _, err := executeCommand(t, "decode", "--config", cfg, "--raw", "-o", "table", weaponSerial)
		require.NoError(t, err)
		assert.Contains(t, out, "header_be")
		assert.Contains(t, out, "3692315303")
		assert.Contains(t, out, "byte_21")
	})

	t.Run("bad output format", func(t *testing.T) {
		_, _, err := executeCommand(t, "decode", "--config", cfg, "-o", "xml", weaponSerial)
		assert.ErrorContains(t, err, "unsupported output format")
	})

	t.Run("no serial", func(t *testing.T) {
		_, _, err := executeCommand(t, "decode", "--config", cfg)
		assert.Error(t, err)
	})

	t.Run("missing explicit config", func(t *testing.T) {
		_, _, err := executeCommand(t, "decode", "--config", filepath.Join(t.TempDir(), "none.yaml"), weaponSerial)
		assert.ErrorContains(t, err, "config file does not exist")
	})
}

func TestEncodeCommand(t *testing.T) {
	cfg := writeTestConfig(t)

	tests := []struct {
		name     string
		serial   string
		sets     []string
		expected string
	}{
		{name: "primary", serial: weaponSerial, sets: []string{"primary=1200"}, expected: "@Ugr$Pj</$Qa!a%H`NgZl^aX^(?UrYc"},
		{name: "secondary", serial: weaponSerial, sets: []string{"secondary=3000"}, expected: "@Ugr$Q9m/$Qa!a%H`NgZm4(X^(?UrYc"},
		{name: "level", serial: weaponSerial, sets: []string{"level = 20"}, expected: "@UguR;{u/$Qa!a%H`NgZl^aX^(?UrYc"},
		{name: "pool nibble", serial: "@Ugr$Q9m/A`5Qa!a%H`NgZl^aX^(?UrYc", sets: []string{"nibble=7"}, expected: "@Ugr$Q9m/A`7Qa!a%H`NgZl^aX^(?UrYc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []string{"encode", "--config", cfg, tt.serial}
			for _, s := range tt.sets {
				args = append(args, "--set", s)
			}
			out, _, err := executeCommand(t, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected+"\n", out)
		})
	}

	t.Run("weapon rarity is skipped", func(t *testing.T) {
		out, stderr, err := executeCommand(t, "encode", "--config", cfg, weaponSerial, "--set", "rarity=epic")
		require.NoError(t, err)
		assert.Equal(t, weaponSerial+"\n", out)
		assert.Contains(t, stderr, "rarity is not writable")
		assert.Contains(t, stderr, "serial unchanged")
	})

	t.Run("reserved pool rejects nibble", func(t *testing.T) {
		_, _, err := executeCommand(t, "encode", "--config", cfg, "@Ugr$Q9m/F`5Qa!a%H`NgZl^aX^(?UrYc", "--set", "nibble=7")
		assert.ErrorIs(t, err, serial.ErrPoolNibbleMismatch)
	})

	errorCases := []struct {
		name string
		args []string
		msg  string
	}{
		{name: "no edits", args: []string{weaponSerial}, msg: "--set"},
		{name: "unknown field", args: []string{weaponSerial, "--set", "color=red"}, msg: "unknown field"},
		{name: "missing equals", args: []string{weaponSerial, "--set", "level"}, msg: "expected field=value"},
		{name: "bad number", args: []string{weaponSerial, "--set", "level=high"}, msg: "invalid value"},
		{name: "bad flags", args: []string{weaponSerial, "--set", "flags=ab"}, msg: "three characters"},
		{name: "flags on equipment", args: []string{"@Uer$Q9m/$Qa!a%H`NgZl^aX^(?UrYc", "--set", "flags=abc"}, msg: "only apply to weapons"},
		{name: "bad part", args: []string{weaponSerial, "--set", "parts=1,x"}, msg: "invalid part"},
		{name: "sentinel", args: []string{"garbage", "--set", "level=3"}, msg: "cannot edit"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := executeCommand(t, append([]string{"encode", "--config", cfg}, tc.args...)...)
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestApplyEdit(t *testing.T) {
	item := serial.Decode(weaponSerial)

	require.NoError(t, applyEdit(item, "rarity", "Legendary"))
	assert.Equal(t, int(serial.RarityLegendary), *item.Stats.Rarity)

	require.NoError(t, applyEdit(item, "parts", "3, 4,5"))
	assert.Equal(t, []int{3, 4, 5}, item.Stats.Parts)

	require.NoError(t, applyEdit(item, "flags", "abc"))
	assert.Equal(t, []int{'a', 'b', 'c'}, item.Stats.Flags)

	require.NoError(t, applyEdit(item, "class", "7"))
	assert.Equal(t, 7, *item.Stats.ItemClass)

	gear := serial.Decode("@Uer$Q9m/$Qa!a%H`NgZl^aX^(?UrYc")
	assert.ErrorContains(t, applyEdit(gear, "flags", "abc"), "only apply to weapons")
	assert.Nil(t, gear.Stats.Flags)
}

func TestInspectCommand(t *testing.T) {
	cfg := writeTestConfig(t)
	savePath := filepath.Join(t.TempDir(), "1.yaml")
	require.NoError(t, os.WriteFile(savePath, []byte(testSave), 0600))

	t.Run("json", func(t *testing.T) {
		out, _, err := executeCommand(t, "inspect", "--config", cfg, "-o", "json", savePath)
		require.NoError(t, err)

		var slots []savefile.DecodedSlot
		require.NoError(t, json.Unmarshal([]byte(out), &slots))
		require.Len(t, slots, 2)
		assert.Equal(t, savefile.Backpack, slots[0].Container)
		assert.Equal(t, "r", slots[0].Item.ItemType)
		assert.Equal(t, savefile.LostLoot, slots[1].Container)
		assert.Equal(t, "e", slots[1].Item.ItemType)
	})

	t.Run("table", func(t *testing.T) {
		out, _, err := executeCommand(t, "inspect", "--config", cfg, "-o", "table", savePath)
		require.NoError(t, err)
		assert.Contains(t, out, "backpack")
		assert.Contains(t, out, "lostloot")
		assert.Contains(t, out, "2 items")
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := executeCommand(t, "inspect", "--config", cfg, filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read save document")
	})
}

func TestInspectCommand_Edits(t *testing.T) {
	cfg := writeTestConfig(t)
	const (
		backpackSlot = "state.inventory.items.backpack.slot_0.serial"
		leveled      = "@UguR;{u/$Qa!a%H`NgZl^aX^(?UrYc"
	)
	newSave := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "1.yaml")
		require.NoError(t, os.WriteFile(path, []byte(testSave), 0600))
		return path
	}

	t.Run("dry run prints the document", func(t *testing.T) {
		savePath := newSave(t)
		out, _, err := executeCommand(t, "inspect", "--config", cfg, savePath, "--set", backpackSlot+"=level=20")
		require.NoError(t, err)
		assert.Contains(t, out, leveled)
		assert.Contains(t, out, "lostloot:")

		data, err := os.ReadFile(savePath)
		require.NoError(t, err)
		assert.Equal(t, testSave, string(data))
	})

	t.Run("write", func(t *testing.T) {
		savePath := newSave(t)
		out, _, err := executeCommand(t, "inspect", "--config", cfg, "-o", "json", "-w", savePath,
			"--set", backpackSlot+"=level=20", "--set", backpackSlot+"=primary=5340")
		require.NoError(t, err)

		var slots []savefile.DecodedSlot
		require.NoError(t, json.Unmarshal([]byte(out), &slots))
		require.Len(t, slots, 2)
		assert.Equal(t, leveled, slots[0].Serial)
		assert.Equal(t, 20, *slots[0].Item.Stats.Level)

		data, err := os.ReadFile(savePath)
		require.NoError(t, err)
		doc, err := savefile.Load(data)
		require.NoError(t, err)
		assert.Equal(t, leveled, doc.Slots()[0].Serial)
	})

	t.Run("skipped field warns", func(t *testing.T) {
		savePath := newSave(t)
		_, stderr, err := executeCommand(t, "inspect", "--config", cfg, savePath, "--set", backpackSlot+"=rarity=epic")
		require.NoError(t, err)
		assert.Contains(t, stderr, "rarity is not writable for this item at "+backpackSlot)
	})

	t.Run("unknown path", func(t *testing.T) {
		_, _, err := executeCommand(t, "inspect", "--config", cfg, newSave(t), "--set", "state.nope.serial=level=20")
		assert.ErrorIs(t, err, savefile.ErrSlotNotFound)
	})

	t.Run("missing field", func(t *testing.T) {
		_, _, err := executeCommand(t, "inspect", "--config", cfg, newSave(t), "--set", backpackSlot+"=20")
		assert.ErrorContains(t, err, "expected path=field=value")
	})

	t.Run("fallback is an error", func(t *testing.T) {
		savePath := newSave(t)
		_, _, err := executeCommand(t, "inspect", "--config", cfg, "-w", savePath, "--set", backpackSlot+"=level=200")
		assert.ErrorIs(t, err, ErrEncodeFallback)

		data, err := os.ReadFile(savePath)
		require.NoError(t, err)
		assert.Equal(t, testSave, string(data))
	})
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bl4serial", "config.yaml")

	out, _, err := executeCommand(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration created")
	assert.FileExists(t, path)

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.NotEqual(t, "auto", loaded.Server.APIKey)

	_, _, err = executeCommand(t, "config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, _, err = executeCommand(t, "config", "init", "--config", path, "--force")
	assert.NoError(t, err)
}

type recordingStarter struct {
	config api.ServerConfig
}

func (s *recordingStarter) StartServer(_ context.Context, _ api.ItemCodec, config api.ServerConfig, _ *slog.Logger) error {
	s.config = config
	return nil
}

type recordingFactory struct {
	starter *recordingStarter
}

func (f *recordingFactory) CreateServerStarter() api.ServerStarter {
	return f.starter
}

func TestServeCommand(t *testing.T) {
	cfg := writeTestConfig(t)

	run := func(t *testing.T, args ...string) (*recordingStarter, string, error) {
		t.Helper()
		starter := &recordingStarter{}
		c := di.NewContainer(nil)
		c.SetServerFactory(&recordingFactory{starter: starter})

		resetFlags(rootCmd)
		SetContainer(c)
		var stdout, stderr bytes.Buffer
		rootCmd.SetOut(&stdout)
		rootCmd.SetErr(&stderr)
		rootCmd.SetArgs(append([]string{"serve", "--config", cfg}, args...))
		err := rootCmd.ExecuteContext(context.Background())
		return starter, stdout.String(), err
	}

	t.Run("flags override config", func(t *testing.T) {
		starter, _, err := run(t, "--port", "9001", "--bind", "0.0.0.0", "--api-key", "k")
		require.NoError(t, err)
		assert.Equal(t, 9001, starter.config.Port)
		assert.Equal(t, "0.0.0.0", starter.config.Bind)
		assert.Equal(t, "k", starter.config.APIKey)
		assert.Equal(t, 500, starter.config.MaxBatch)
		assert.Equal(t, 4, starter.config.BatchWorkers)
	})

	t.Run("auto key is generated", func(t *testing.T) {
		starter, out, err := run(t)
		require.NoError(t, err)
		assert.Len(t, starter.config.APIKey, 64)
		assert.Contains(t, out, starter.config.APIKey)
		assert.Equal(t, 8085, starter.config.Port)
	})

	t.Run("invalid port", func(t *testing.T) {
		_, _, err := run(t, "--port", "0")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

package client_test

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/regbridge/bridge"
	"github.com/luma/regbridge/client"
	"github.com/luma/regbridge/registry"
	"github.com/luma/regbridge/transport"
)

var _ = Describe("client / Conn", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		conn   *client.Conn
		served chan error
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)

		listener, err := transport.Listen(transport.Options{})
		Expect(err).NotTo(HaveOccurred())
		defer listener.Close()

		reg := registry.NewMemory(registry.WithEnv(func(name string) (string, bool) {
			if name == "APPDATA" {
				return `C:\Users\me\AppData\Roaming`, true
			}
			return "", false
		}))

		served = make(chan error, 1)
		go func() {
			defer GinkgoRecover()

			stream, err := transport.Dial(ctx, transport.Options{Port: listener.Port()})
			Expect(err).NotTo(HaveOccurred())

			served <- bridge.NewSession(stream, bridge.Options{API: reg}).Serve(ctx)
		}()

		stream, err := listener.Accept(ctx)
		Expect(err).NotTo(HaveOccurred())

		conn, err = client.NewConn(stream, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(conn.Close()).To(Succeed())
		Eventually(served).Should(Receive(BeNil()))
		cancel()
	})

	It("creates keys and reads values back", func() {
		key, err := conn.CreateKeyEx(ctx, registry.CurrentUser, `Software\Vendor`, registry.KeyAllAccess)
		Expect(err).NotTo(HaveOccurred())

		Expect(conn.SetValueEx(ctx, key, "Path", registry.MustExpandStringValue(`%APPDATA%\vendor`))).To(Succeed())
		Expect(conn.SetValueEx(ctx, key, "Count", registry.DwordValue(42))).To(Succeed())

		value, err := conn.QueryValueEx(ctx, key, "Path")
		Expect(err).NotTo(HaveOccurred())
		Expect(value.Type).To(Equal(registry.TypeExpandString))

		text, err := value.Text()
		Expect(err).NotTo(HaveOccurred())

		expanded, err := conn.ExpandEnvironmentStrings(ctx, text)
		Expect(err).NotTo(HaveOccurred())
		Expect(expanded).To(Equal(`C:\Users\me\AppData\Roaming\vendor`))

		name, value, err := conn.EnumValue(ctx, key, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("Count"))
		Expect(value.Uint32()).To(Equal(uint32(42)))

		info, err := conn.QueryInfoKey(ctx, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Values).To(Equal(uint32(2)))
		Expect(info.LastWrite).To(BeTemporally("~", time.Now(), time.Minute))

		Expect(conn.CloseKey(ctx, key)).To(Succeed())
	})

	It("returns command failures as *client.Error", func() {
		_, err := conn.OpenKeyEx(ctx, registry.CurrentUser, `Missing`, registry.KeyRead)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, registry.ErrorFileNotFound)).To(BeTrue())

		var cerr *client.Error
		Expect(errors.As(err, &cerr)).To(BeTrue())
		Expect(cerr.Message).To(Equal("The system cannot find the file specified"))
		Expect(cerr.Error()).To(ContainSubstring("OPEN_KEY_EX"))

		st, ok := registry.AsStatus(err)
		Expect(ok).To(BeTrue())
		Expect(st).To(Equal(registry.ErrorFileNotFound))
	})

	It("walks subkeys until ERROR_NO_MORE_ITEMS", func() {
		key, err := conn.CreateKey(ctx, registry.CurrentUser, "Walk")
		Expect(err).NotTo(HaveOccurred())

		for _, sub := range []string{"a", "b", "c"} {
			_, err := conn.CreateKey(ctx, key, sub)
			Expect(err).NotTo(HaveOccurred())
		}

		var names []string
		for i := uint32(0); ; i++ {
			name, err := conn.EnumKey(ctx, key, i)
			if errors.Is(err, registry.ErrorNoMoreItems) {
				break
			}
			Expect(err).NotTo(HaveOccurred())
			names = append(names, name)
		}

		Expect(names).To(Equal([]string{"a", "b", "c"}))
	})

	It("keeps the session after ABORT", func() {
		Expect(conn.Abort()).To(Succeed())
		Expect(conn.FlushKey(ctx, registry.NoKey)).To(Succeed())
	})

	It("handles default values and reflection", func() {
		Expect(conn.SetValue(ctx, registry.CurrentUser, `Classes\.txt`, "txtfile")).To(Succeed())

		value, err := conn.QueryValue(ctx, registry.CurrentUser, `Classes\.txt`)
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("txtfile"))

		key, err := conn.OpenKey(ctx, registry.CurrentUser, `Classes\.txt`, registry.KeyRead)
		Expect(err).NotTo(HaveOccurred())

		Expect(conn.DisableReflectionKey(ctx, key)).To(Succeed())
		disabled, err := conn.QueryReflectionKey(ctx, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(disabled).To(BeTrue())

		Expect(conn.EnableReflectionKey(ctx, key)).To(Succeed())
		Expect(conn.DeleteKeyEx(ctx, registry.CurrentUser, `Classes\.txt`, registry.KeyWow6464Key)).To(Succeed())
		Expect(conn.DeleteKey(ctx, registry.CurrentUser, `Classes\.txt`)).To(MatchError(registry.ErrorFileNotFound))
	})

	It("saves, loads and connects", func() {
		key, err := conn.CreateKey(ctx, registry.LocalMachine, `Software\Hive`)
		Expect(err).NotTo(HaveOccurred())
		Expect(conn.SetValueEx(ctx, key, "Q", registry.QwordValue(1<<40))).To(Succeed())
		Expect(conn.DeleteValue(ctx, key, "Missing")).To(MatchError(registry.ErrorFileNotFound))

		Expect(conn.SaveKey(ctx, key, `C:\hive.dat`)).To(Succeed())
		Expect(conn.SaveKey(ctx, key, `C:\hive.dat`)).To(MatchError(registry.ErrorAlreadyExists))

		remote, err := conn.ConnectRegistry(ctx, "", registry.Users)
		Expect(err).NotTo(HaveOccurred())
		Expect(conn.LoadKey(ctx, registry.Users, "Restored", `C:\hive.dat`)).To(Succeed())

		restored, err := conn.OpenKeyEx(ctx, remote, "Restored", registry.KeyRead)
		Expect(err).NotTo(HaveOccurred())

		value, err := conn.QueryValueEx(ctx, restored, "Q")
		Expect(err).NotTo(HaveOccurred())
		Expect(value.Uint64()).To(Equal(uint64(1 << 40)))
	})

	It("refuses strings that are not UTF-8 before sending", func() {
		_, err := conn.CreateKey(ctx, registry.CurrentUser, "bad \xff")
		Expect(errors.Is(err, registry.ErrorNoUnicodeTranslation)).To(BeTrue())

		// Nothing was sent, so the session is still in step.
		Expect(conn.FlushKey(ctx, registry.CurrentUser)).To(Succeed())
	})
})

var _ = Describe("client / Launch", func() {
	It("fails when the executable is missing", func() {
		_, err := client.Launch(context.Background(), client.LaunchOptions{
			Executable: "/nonexistent/regbridge",
		})
		Expect(err).To(MatchError(ContainSubstring("starting bridge")))
	})

	It("gives up when the bridge never connects", func() {
		if runtime.GOOS == "windows" {
			Skip("needs a POSIX shell")
		}

		sh, err := exec.LookPath("sh")
		if err != nil {
			Skip("no shell available")
		}

		started := time.Now()
		_, err = client.Launch(context.Background(), client.LaunchOptions{
			Executable:    sh,
			Args:          []string{"-c", "sleep 5"},
			AcceptTimeout: 100 * time.Millisecond,
			Reuseport:     true,
		})
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		Expect(strings.Contains(err.Error(), "waiting for bridge")).To(BeTrue())
		Expect(time.Since(started)).To(BeNumerically("<", 4*time.Second))
	})
})

package consumer_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parleychat/parley/pkg/api"
	"github.com/parleychat/parley/pkg/chat"
	"github.com/parleychat/parley/pkg/consumer"
	"github.com/parleychat/parley/pkg/store"
	"github.com/parleychat/parley/pkg/testutil"
)

var _ = Describe("Consumer streaming", func() {
	var (
		st   *store.Store
		sess chat.Session
	)

	BeforeEach(func() {
		st = store.New()
		sess = st.CreateSession("test-model", "fake-driven session")
		Expect(st.SelectSession(sess.ID)).To(Succeed())
	})

	Describe("a clean stream", func() {
		It("folds every delta into a single assistant message", func() {
			client := testutil.NewFakeStreamingClient(testutil.Script("The ", "quick ", "fox"))
			cons := consumer.New(st, client)

			err := cons.Send(context.Background(), sess.ID, "tell me", chat.SendOptions{Stream: true})
			Expect(err).NotTo(HaveOccurred())

			got, ok := st.Session(sess.ID)
			Expect(ok).To(BeTrue())
			Expect(got.Messages).To(HaveLen(2))
			Expect(got.Messages[1].Role).To(Equal(chat.RoleAssistant))
			Expect(got.Messages[1].Content).To(Equal("The quick fox"))
		})

		It("sends the full conversation history with each request", func() {
			client := testutil.NewFakeStreamingClient(
				testutil.Script("one"),
				testutil.Script("two"),
			)
			cons := consumer.New(st, client)

			Expect(cons.Send(context.Background(), sess.ID, "first", chat.SendOptions{Stream: true})).To(Succeed())
			Expect(cons.Send(context.Background(), sess.ID, "second", chat.SendOptions{Stream: true})).To(Succeed())

			requests := client.Requests()
			Expect(requests).To(HaveLen(2))
			Expect(requests[0].Messages).To(HaveLen(1))
			Expect(requests[1].Messages).To(HaveLen(3))
			Expect(requests[1].SessionID).To(Equal(sess.ID))
		})
	})

	Describe("a stream that fails midway", func() {
		It("keeps the partial content and reports the failure", func() {
			client := testutil.NewFakeStreamingClient(testutil.ScriptWithError("model overloaded", "partial "))
			cons := consumer.New(st, client)

			err := cons.Send(context.Background(), sess.ID, "go", chat.SendOptions{Stream: true})

			var streamErr *api.StreamError
			Expect(errors.As(err, &streamErr)).To(BeTrue())
			Expect(streamErr.Message).To(Equal("model overloaded"))

			got, _ := st.Session(sess.ID)
			Expect(got.Messages).To(HaveLen(2))
			Expect(got.Messages[1].Content).To(Equal("partial "))
			Expect(st.Generating(sess.ID)).To(BeFalse())
		})
	})

	Describe("a stream that closes without content", func() {
		It("reports an empty-stream failure", func() {
			client := testutil.NewFakeStreamingClient([]chat.Chunk{})
			cons := consumer.New(st, client)

			err := cons.Send(context.Background(), sess.ID, "go", chat.SendOptions{Stream: true})

			var streamErr *api.StreamError
			Expect(errors.As(err, &streamErr)).To(BeTrue())
			Expect(streamErr.Message).To(ContainSubstring("before any content"))
		})
	})
})

package widget

import (
	"context"

	"localtrainer/internal/models"
)

// Pending 一次提交对应的延迟回复任务。任务不可取消，多个任务互相独立
type Pending struct {
	input string
	reply models.Message
	done  chan struct{}
}

func newPending(input string) *Pending {
	return &Pending{input: input, done: make(chan struct{})}
}

func (p *Pending) resolve(reply models.Message) {
	p.reply = reply
	close(p.done)
}

// Input 触发本次回复的用户输入
func (p *Pending) Input() string {
	return p.input
}

// Done 回复追加完成后关闭
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Await 等待回复完成，ctx结束时返回ctx的错误。放弃等待不会取消回复
func (p *Pending) Await(ctx context.Context) (models.Message, error) {
	select {
	case <-p.done:
		return p.reply, nil
	case <-ctx.Done():
		return models.Message{}, ctx.Err()
	}
}

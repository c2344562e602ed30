package loom

type factory struct{}

var Factory factory

func (f factory) NewEngine(opts ...Option) *Engine {
	return New(opts...)
}

func (f factory) NewQuery() Query {
	return newQuery()
}

func (f factory) NewCursor(query QueryNode, engine *Engine) *Cursor {
	return newCursor(query, engine)
}

func FactoryNewComponent[T any](e *Engine) ComponentType[T] {
	return RegisterComponent[T](e)
}

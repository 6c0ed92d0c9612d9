package publisher

type Option func(publisher *Publisher)

func WithMiddlewares(middlewares ...Middleware) Option {
	return func(publisher *Publisher) {
		publisher.Middlewares = append(publisher.Middlewares, middlewares...)
	}
}

// WithVirtualHost binds the publisher to another virtual host than DefaultVirtualHost
func WithVirtualHost(name string) Option {
	return func(publisher *Publisher) {
		publisher.VirtualHost = name
	}
}

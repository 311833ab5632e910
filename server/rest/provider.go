package rest

func ProvideService(args *ContainerArgs) *Service {
	return NewService(args.Batcher, args.Store, args.Config)
}

func ProvideHandler(svc *Service) *Handler {
	return &Handler{service: svc}
}

package app

import (
	"examprep_backend/docs"
	"examprep_backend/internal/config"
	"examprep_backend/internal/middleware"
	"examprep_backend/internal/model"
	"examprep_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/profile", c.auth.UpdateProfile)

	// 科目和学习材料
	rg.GET("/subjects", c.subject.ListSubjects)
	rg.GET("/subjects/:id", c.subject.GetSubject)
	rg.GET("/subjects/:id/topics", c.subject.ListTopics)
	rg.GET("/subjects/:id/topics/:number", c.subject.GetTopic)

	// 考试
	exams := rg.Group("/exams")
	{
		exams.POST("", c.exam.StartExam)
		exams.GET("", c.exam.History)
		exams.GET("/:id", c.exam.Detail)
		exams.GET("/:id/current", c.exam.Current)
		exams.PUT("/:id/answer", c.exam.Answer)
		exams.POST("/:id/next", c.exam.Next)
		exams.POST("/:id/prev", c.exam.Prev)
		exams.POST("/:id/jump", c.exam.Jump)
		exams.POST("/:id/finish", c.exam.Finish)
		exams.POST("/:id/save", c.exam.SaveResult)
		exams.GET("/:id/result", c.exam.Result)
		exams.GET("/:id/result.pdf", c.exam.ResultPDF)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/subjects", c.subject.CreateSubject)
		admin.PUT("/subjects/:id", c.subject.UpdateSubject)
		admin.DELETE("/subjects/:id", c.subject.DeleteSubject)
		admin.PUT("/subjects/:id/topics", c.subject.SaveTopics)
		admin.POST("/subjects/:id/pdf", c.subject.UploadPDF)
		admin.GET("/subjects/:id/files", c.subject.ListFiles)
		admin.DELETE("/subjects/:id/files", c.subject.CleanupFiles)
		admin.POST("/subjects/:id/questions", c.subject.ImportQuestions)
	}
}

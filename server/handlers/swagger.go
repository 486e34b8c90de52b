package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"cotejo/docs"
)

// RegisterSwaggerRoutes регистрирует Swagger UI; host берется из адреса сервера
func RegisterSwaggerRoutes(router *gin.Engine, host, version string) {
	docs.SwaggerInfo.Host = host
	docs.SwaggerInfo.BasePath = "/api"
	docs.SwaggerInfo.Schemes = []string{"http"}
	if version != "" {
		docs.SwaggerInfo.Version = version
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
}
